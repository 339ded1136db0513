// ABOUTME: Demo data for local development of the console
// ABOUTME: One admin, a handful of users, accounts, recordings, and tickets

package fakebackend

import (
	"fmt"
	"time"
)

// Seed populates the store with a small demo data set. adminEmail and
// adminPassword become the operator account for the console.
func (s *Store) Seed(adminEmail, adminPassword string) error {
	now := time.Now().UTC()

	users := []User{
		{ID: "0a0a0a0a-0000-4000-8000-000000000001", Email: adminEmail, Password: adminPassword, IsAdmin: true, CreatedAt: now.Add(-90 * 24 * time.Hour)},
		{ID: "0a0a0a0a-0000-4000-8000-000000000002", Email: "mara@example.com", Password: "watchparty", CreatedAt: now.Add(-60 * 24 * time.Hour)},
		{ID: "0a0a0a0a-0000-4000-8000-000000000003", Email: "jun@example.com", Password: "watchparty", CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{ID: "0a0a0a0a-0000-4000-8000-000000000004", Email: "priya@example.com", Password: "watchparty", CreatedAt: now.Add(-7 * 24 * time.Hour)},
	}
	for _, u := range users {
		if err := s.InsertUser(u); err != nil {
			return err
		}
	}

	if err := s.InsertPlan("1b1b1b1b-0000-4000-8000-000000000001", "Starter", map[string]any{"max_follows": 3}); err != nil {
		return err
	}
	if err := s.InsertPlan("1b1b1b1b-0000-4000-8000-000000000002", "Pro", map[string]any{"max_follows": 25, "priority_support": true}); err != nil {
		return err
	}

	subs := []struct {
		id, userID, planID, status string
		startsAt, endsAt           time.Time
	}{
		{"2c2c2c2c-0000-4000-8000-000000000001", users[1].ID, "1b1b1b1b-0000-4000-8000-000000000002", "active", now.Add(-20 * 24 * time.Hour), now.Add(10 * 24 * time.Hour)},
		{"2c2c2c2c-0000-4000-8000-000000000002", users[2].ID, "1b1b1b1b-0000-4000-8000-000000000001", "expired", now.Add(-60 * 24 * time.Hour), now.Add(-30 * 24 * time.Hour)},
	}
	for _, sub := range subs {
		if err := s.InsertSubscription(sub.id, sub.userID, sub.planID, sub.status, sub.startsAt, sub.endsAt); err != nil {
			return err
		}
	}

	accounts := []struct {
		id, platform, accountID, url, status string
	}{
		{"3d3d3d3d-0000-4000-8000-000000000001", "twitch", "nebula_nights", "https://twitch.example.com/nebula_nights", "active"},
		{"3d3d3d3d-0000-4000-8000-000000000002", "youtube", "LateShiftLive", "https://youtube.example.com/@LateShiftLive", "active"},
		{"3d3d3d3d-0000-4000-8000-000000000003", "twitch", "quietcorner", "https://twitch.example.com/quietcorner", "paused"},
	}
	for i, a := range accounts {
		if err := s.InsertLiveAccount(a.id, a.platform, a.accountID, a.url, a.status, now.Add(-time.Duration(40-i*10)*24*time.Hour)); err != nil {
			return err
		}
	}

	follows := []struct{ userID, accountID, status string }{
		{users[1].ID, accounts[0].id, "active"},
		{users[1].ID, accounts[1].id, "active"},
		{users[2].ID, accounts[0].id, "active"},
		{users[3].ID, accounts[2].id, "paused"},
	}
	for i, f := range follows {
		if err := s.InsertFollow(f.userID, f.accountID, f.status, now.Add(-time.Duration(20-i)*24*time.Hour)); err != nil {
			return err
		}
	}

	recordings := []struct {
		accountID, status, storagePath string
	}{
		{accounts[0].id, "ready", "recordings/nebula/2026-08-20.mp4"},
		{accounts[0].id, "ready", "recordings/nebula/2026-08-27.mp4"},
		{accounts[0].id, "failed", ""},
		{accounts[1].id, "ready", "recordings/lateshift/2026-08-25.mp4"},
		{accounts[1].id, "live_recording", ""},
		{accounts[2].id, "waiting_upload", ""},
	}
	for i, rec := range recordings {
		id := fmt.Sprintf("4e4e4e4e-0000-4000-8000-%012d", i+1)
		key := fmt.Sprintf("rec-%04d", i+1)
		if err := s.InsertRecording(id, rec.accountID, key, rec.status, rec.storagePath, now.Add(-time.Duration(len(recordings)-i)*24*time.Hour)); err != nil {
			return err
		}
	}

	tickets := []struct {
		userID, email, category, subject, message, severity, status string
	}{
		{users[1].ID, "mara@example.com", "bug", "Recording stuck at uploading", "My recording from last night never finished uploading.", "high", "open"},
		{users[2].ID, "jun@example.com", "question", "How do I change plans?", "I want to upgrade from Starter to Pro.", "normal", "in_progress"},
		{users[3].ID, "priya@example.com", "feature", "Notify me when a stream starts", "An email or push when a followed account goes live would help.", "low", "resolved"},
	}
	for i, tk := range tickets {
		id := fmt.Sprintf("5f5f5f5f-0000-4000-8000-%012d", i+1)
		if err := s.InsertTicket(id, tk.userID, tk.email, tk.category, tk.subject, tk.message, tk.severity, tk.status, now.Add(-time.Duration(len(tickets)-i)*24*time.Hour)); err != nil {
			return err
		}
	}

	s.logger.Info("seeded demo data", "users", len(users), "live_accounts", len(accounts))
	return nil
}
