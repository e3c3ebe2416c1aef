package email

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendInviteWithoutSMTPConfigured(t *testing.T) {
	// No SMTP host means sends are skipped, not failed. The invite
	// retry job depends on this being a non-error.
	svc := NewService(&Config{FrontendURL: "https://app.nimbushq.io/"})
	err := svc.SendInvite("Acme", "robin@acme.io", "Robin", "invite-1")
	assert.NoError(t, err)
}

func TestInviteTemplateRenders(t *testing.T) {
	svc := NewService(&Config{FrontendURL: "https://app.nimbushq.io"})
	tmpl, ok := svc.templates["invite"]
	require.True(t, ok)

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, InviteEmailData{
		OrganizationName: "Acme",
		FirstName:        "Robin",
		InviteURL:        "https://app.nimbushq.io/signup/invite-1",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Acme")
	assert.Contains(t, buf.String(), "https://app.nimbushq.io/signup/invite-1")
}
