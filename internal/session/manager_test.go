package session

import (
	"testing"
	"time"

	"smartfleet/internal/models"
)

func TestManagerCreateAndGet(t *testing.T) {
	m := NewManager()
	sess := m.Create("upstream-tok", "refresh-tok", models.User{Username: "olga"}, false)

	if sess.ID == "" {
		t.Fatal("session id is empty")
	}
	got, ok := m.Get(sess.ID)
	if !ok {
		t.Fatal("Get missed a fresh session")
	}
	if got.Token != "upstream-tok" || got.User.Username != "olga" {
		t.Errorf("session = %+v", got)
	}
	if _, ok := m.Get("unknown"); ok {
		t.Error("Get returned hit for an unknown id")
	}
}

func TestManagerRememberExtendsTTL(t *testing.T) {
	m := NewManager()
	short := m.Create("tok", "", models.User{}, false)
	long := m.Create("tok", "", models.User{}, true)
	if !long.ExpiresAt.After(short.ExpiresAt.Add(24 * time.Hour)) {
		t.Errorf("remember session expires at %v, short at %v", long.ExpiresAt, short.ExpiresAt)
	}
}

func TestManagerExpiredSessionIsGone(t *testing.T) {
	m := NewManager()
	sess := m.Create("tok", "", models.User{}, false)

	// Force expiry in place.
	m.sessionsMutex.Lock()
	s := m.sessions[sess.ID]
	s.ExpiresAt = time.Now().Add(-time.Minute)
	m.sessions[sess.ID] = s
	m.sessionsMutex.Unlock()

	if _, ok := m.Get(sess.ID); ok {
		t.Error("Get returned an expired session")
	}
}

func TestManagerRevokeByUpstreamToken(t *testing.T) {
	m := NewManager()
	a := m.Create("dead-tok", "", models.User{Username: "a"}, false)
	b := m.Create("dead-tok", "", models.User{Username: "b"}, false)
	c := m.Create("live-tok", "", models.User{Username: "c"}, false)

	if n := m.RevokeByUpstreamToken("dead-tok"); n != 2 {
		t.Errorf("revoked %d sessions, want 2", n)
	}
	for _, id := range []string{a.ID, b.ID} {
		if _, ok := m.Get(id); ok {
			t.Errorf("session %s survived token revocation", id)
		}
	}
	if _, ok := m.Get(c.ID); !ok {
		t.Error("unrelated session was revoked")
	}
}

func TestManagerDraftCopySemantics(t *testing.T) {
	m := NewManager()
	sess := m.Create("tok", "", models.User{}, false)

	draft := m.GetDraft(sess.ID)
	draft.SetOwner("Smith Trucking")
	// Not stored yet: the manager hands out copies.
	if m.GetDraft(sess.ID).Owner != "" {
		t.Error("draft mutation leaked without UpdateDraft")
	}

	m.UpdateDraft(sess.ID, draft)
	if m.GetDraft(sess.ID).Owner != "Smith Trucking" {
		t.Error("draft not persisted by UpdateDraft")
	}

	m.ClearDraft(sess.ID)
	if m.GetDraft(sess.ID).Owner != "" {
		t.Error("draft survived ClearDraft")
	}
}

func TestManagerRestoreSkipsExpired(t *testing.T) {
	m := NewManager()
	m.Restore(Session{ID: "old", Token: "t", ExpiresAt: time.Now().Add(-time.Hour)})
	if _, ok := m.Get("old"); ok {
		t.Error("expired session restored")
	}

	m.Restore(Session{ID: "fresh", Token: "t", ExpiresAt: time.Now().Add(time.Hour)})
	if _, ok := m.Get("fresh"); !ok {
		t.Error("fresh session not restored")
	}
}
