package cron

import (
	"context"
	"log"
	"time"

	"github.com/nimbushq/nimbus-backend/internal/email"
	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/types"
	"github.com/robfig/cron/v3"
)

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron     *cron.Cron
	repos    *repository.Repositories
	emailSvc *email.Service
}

// NewScheduler creates a new scheduler
func NewScheduler(repos *repository.Repositories, emailSvc *email.Service) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		repos:    repos,
		emailSvc: emailSvc,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Run every hour - retry invite emails that never got a delivery attempt
	s.cron.AddFunc("0 * * * *", func() {
		log.Println("[Cron] Running invite email retry...")
		s.retryInviteEmails()
	})

	// Run every day at midnight - invite activity stats
	s.cron.AddFunc("0 0 * * *", func() {
		log.Println("[Cron] Running invite stats...")
		s.logInviteStats()
	})

	s.cron.Start()
	log.Println("[Cron] ✅ Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[Cron] Scheduler stopped")
}

// retryInviteEmails sends invite emails that were created while email
// delivery was unavailable. Only invites still inside the validity
// window are retried.
func (s *Scheduler) retryInviteEmails() {
	if s.emailSvc == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -types.InviteDaysValidity)
	invites, err := s.repos.InviteRepo.FindUnattempted(ctx, cutoff)
	if err != nil {
		log.Printf("[Cron] Failed to load unattempted invites: %v", err)
		return
	}

	sent := 0
	for _, invite := range invites {
		if invite.TargetEmail == nil {
			continue
		}

		org, err := s.repos.OrganizationRepo.FindByID(ctx, invite.OrganizationID)
		if err != nil || org == nil {
			continue
		}

		if err := s.emailSvc.SendInvite(org.Name, *invite.TargetEmail, invite.FirstName, invite.ID); err != nil {
			log.Printf("[Cron] Failed to send invite email to %s: %v", *invite.TargetEmail, err)
			continue
		}
		if err := s.repos.InviteRepo.MarkEmailingAttempt(ctx, invite.ID); err != nil {
			log.Printf("[Cron] Failed to mark invite %s: %v", invite.ID, err)
			continue
		}
		sent++
	}

	if sent > 0 {
		log.Printf("[Cron] Sent %d pending invite emails", sent)
	}
}

func (s *Scheduler) logInviteStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.repos.InviteRepo.CountCreatedSince(ctx, time.Now().AddDate(0, 0, -1))
	if err != nil {
		log.Printf("[Cron] Failed to count invites: %v", err)
		return
	}
	log.Printf("[Cron] Invites created in the last 24h: %d", count)
}
