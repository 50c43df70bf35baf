package session

import (
	"encoding/json"
	"maps"
	"strconv"
	"time"
)

// Persisted keys. The store holds one string value per key.
const (
	KeyAccessToken     = "accessToken"
	KeyRefreshToken    = "refreshToken"
	KeyUser            = "user"
	KeyExpiresIn       = "expiresIn"
	KeyTokenExpiryTime = "tokenExpiryTime"
)

// DefaultSkew is subtracted from the server reported lifetime so a token is
// treated as expiring before the server actually rejects it.
const DefaultSkew = 60 * time.Second

// Session is the authentication state of the single signed-in user.
// Zero values mean absent.
type Session struct {
	AccessToken     string         // Bearer credential, present iff authenticated
	RefreshToken    string         // Used only to obtain a new access token
	User            map[string]any // Opaque profile record
	ExpiresIn       int            // Seconds, as reported at issuance
	TokenExpiryTime int64          // Milliseconds since epoch, skew already applied
}

// IssuedTokens is what the server hands out on login or refresh.
type IssuedTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// IsAuthenticated reports whether an access token is present.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// IsEmpty reports whether every field is absent.
func (s Session) IsEmpty() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.User == nil &&
		s.ExpiresIn == 0 && s.TokenExpiryTime == 0
}

// Expiry returns the expiring-soon deadline, or the zero time when unknown.
func (s Session) Expiry() time.Time {
	if s.TokenExpiryTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.TokenExpiryTime)
}

func (s Session) clone() Session {
	s.User = maps.Clone(s.User)
	return s
}

func expiryTime(issuedAt time.Time, expiresIn int, skew time.Duration) int64 {
	return issuedAt.UnixMilli() + int64(expiresIn)*1000 - skew.Milliseconds()
}

// record encodes the session in the storage format. Absent fields have no key.
func (s Session) record() (Record, error) {
	rec := Record{}
	if s.AccessToken != "" {
		rec[KeyAccessToken] = s.AccessToken
	}
	if s.RefreshToken != "" {
		rec[KeyRefreshToken] = s.RefreshToken
	}
	if s.User != nil {
		data, err := json.Marshal(s.User)
		if err != nil {
			return nil, err
		}
		rec[KeyUser] = string(data)
	}
	if s.ExpiresIn != 0 {
		rec[KeyExpiresIn] = strconv.Itoa(s.ExpiresIn)
	}
	if s.TokenExpiryTime != 0 {
		rec[KeyTokenExpiryTime] = strconv.FormatInt(s.TokenExpiryTime, 10)
	}
	return rec, nil
}

// fromRecord decodes a stored record. Values that do not parse are dropped and
// reported by key so the caller can log them.
func fromRecord(rec Record) (Session, []string) {
	var (
		s       Session
		invalid []string
	)
	s.AccessToken = rec[KeyAccessToken]
	s.RefreshToken = rec[KeyRefreshToken]

	if raw, ok := rec[KeyUser]; ok && raw != "" {
		var user map[string]any
		if err := json.Unmarshal([]byte(raw), &user); err != nil || user == nil {
			invalid = append(invalid, KeyUser)
		} else {
			s.User = user
		}
	}
	if raw, ok := rec[KeyExpiresIn]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			s.ExpiresIn = v
		} else {
			invalid = append(invalid, KeyExpiresIn)
		}
	}
	if raw, ok := rec[KeyTokenExpiryTime]; ok {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			s.TokenExpiryTime = v
		} else {
			invalid = append(invalid, KeyTokenExpiryTime)
		}
	}
	return s, invalid
}
