package session

import (
	"github.com/blockport/blockport-go/api"
	"github.com/blockport/blockport-go/session/storage"
)

// Session is the authenticated state of the client: the credential pair plus
// a cached profile snapshot. Tokens and user always mutate together - there is
// no state where tokens belong to one account and the profile to another.
type Session struct {
	AccessToken     string
	RefreshToken    string
	User            *api.User
	IsAuthenticated bool
}

// record projects the session into its persisted form.
func (s Session) record() *storage.Record {
	return &storage.Record{
		AccessToken:     s.AccessToken,
		RefreshToken:    s.RefreshToken,
		IsAuthenticated: s.IsAuthenticated,
		User:            s.User,
	}
}

// fromRecord rebuilds a session from a persisted record. The authenticated
// flag is re-derived: it never holds without an access token, whatever the
// record claims.
func fromRecord(record *storage.Record) Session {
	if record == nil || record.AccessToken == "" {
		return Session{}
	}
	return Session{
		AccessToken:     record.AccessToken,
		RefreshToken:    record.RefreshToken,
		User:            record.User,
		IsAuthenticated: record.IsAuthenticated,
	}
}

// copy returns a deep enough copy that callers cannot mutate manager state.
func (s Session) copy() Session {
	copied := s
	if s.User != nil {
		user := *s.User
		copied.User = &user
	}
	return copied
}
