package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

const (
	CookieName = "denken_session"
	tokenTTL   = 12 * time.Hour
	issuer     = "denken-trainer"
	// submitted answers are echoed back on the result page; long essays
	// are cut so the cookie stays small
	maxStoredAnswer = 300
	// MaxTokenBytes keeps the Set-Cookie header under the 4096-byte
	// browser limit with room for the attributes.
	MaxTokenBytes = 3800
)

var ErrTokenTooLarge = errors.New("session: token exceeds cookie budget")

// Lookuper resolves question ids back to questions.
type Lookuper interface {
	Lookup(ctx context.Context, ids []string) (map[string]quiz.Question, error)
}

// Codec carries a Session in a signed cookie. Only question ids travel;
// the questions are re-read from the repository on decode.
type Codec struct {
	key    []byte
	lookup Lookuper
	now    func() time.Time
}

func NewCodec(secret string, lookup Lookuper) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session: empty secret")
	}
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("denken-session-v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return &Codec{key: key, lookup: lookup, now: time.Now}, nil
}

type pendingClaims struct {
	ID        string         `json:"id"`
	Correct   bool           `json:"ok"`
	Submitted string         `json:"a"`
	Progress  int            `json:"pr"`
	Position  int            `json:"po"`
	Feedback  *quiz.Feedback `json:"fb,omitempty"`
}

type claims struct {
	Format   string         `json:"f,omitempty"`
	Category string         `json:"cat,omitempty"`
	Review   bool           `json:"r,omitempty"`
	Queue    []string       `json:"q"`
	Total    int            `json:"t"`
	Correct  int            `json:"c"`
	Combo    int            `json:"k"`
	Pending  *pendingClaims `json:"p,omitempty"`
	jwt.RegisteredClaims
}

func (c *Codec) Encode(s Session) (string, error) {
	now := c.now()
	cl := &claims{
		Format:   string(s.Format),
		Category: s.Category,
		Review:   s.Review,
		Queue:    make([]string, 0, len(s.Queue)),
		Total:    s.Total,
		Correct:  s.Correct,
		Combo:    s.Combo,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	for _, q := range s.Queue {
		cl.Queue = append(cl.Queue, q.ID)
	}
	if p := s.Pending; p != nil {
		cl.Pending = &pendingClaims{
			ID:        p.Question.ID,
			Correct:   p.IsCorrect,
			Submitted: truncate(p.Submitted, maxStoredAnswer),
			Progress:  p.Progress,
			Position:  p.Position,
		}
		if p.Feedback != nil {
			fb := *p.Feedback
			fb.Strengths = slices.Clone(fb.Strengths)
			fb.Improvements = slices.Clone(fb.Improvements)
			cl.Pending.Feedback = &fb
		}
	}

	raw, err := c.sign(cl)
	if err != nil {
		return "", err
	}
	for _, shrink := range shrinkSteps {
		if len(raw) <= MaxTokenBytes {
			return raw, nil
		}
		for len(raw) > MaxTokenBytes && shrink(cl) {
			if raw, err = c.sign(cl); err != nil {
				return "", err
			}
		}
	}
	if len(raw) > MaxTokenBytes {
		return "", ErrTokenTooLarge
	}
	return raw, nil
}

func (c *Codec) sign(cl *claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.key)
}

// shrinkSteps run in order until the token fits. Each step reports whether
// it changed anything; a step is repeated while it still makes progress.
// Feedback text goes first, then the echoed answer, then the tail of the
// queue (Total shrinks with it so the score stays consistent).
var shrinkSteps = []func(*claims) bool{
	func(cl *claims) bool {
		fb := pendingFeedback(cl)
		if fb == nil {
			return false
		}
		changed := cutRunes(&fb.Feedback, 200)
		for i := range fb.Strengths {
			changed = cutRunes(&fb.Strengths[i], 60) || changed
		}
		for i := range fb.Improvements {
			changed = cutRunes(&fb.Improvements[i], 60) || changed
		}
		return changed
	},
	func(cl *claims) bool {
		fb := pendingFeedback(cl)
		if fb == nil || len(fb.Strengths)+len(fb.Improvements) == 0 {
			return false
		}
		fb.Strengths, fb.Improvements = nil, nil
		return true
	},
	func(cl *claims) bool {
		if cl.Pending == nil {
			return false
		}
		return cutRunes(&cl.Pending.Submitted, 80)
	},
	func(cl *claims) bool {
		if len(cl.Queue) == 0 {
			return false
		}
		cl.Queue = cl.Queue[:len(cl.Queue)-1]
		cl.Total--
		return true
	},
}

func pendingFeedback(cl *claims) *quiz.Feedback {
	if cl.Pending == nil {
		return nil
	}
	return cl.Pending.Feedback
}

func cutRunes(s *string, n int) bool {
	t := truncate(*s, n)
	if t == *s {
		return false
	}
	*s = t
	return true
}

// Decode never fails: a missing, tampered or expired token is an Idle
// session, and ids the repository no longer knows are dropped.
func (c *Codec) Decode(ctx context.Context, raw string) Session {
	if raw == "" {
		return Session{}
	}
	cl := &claims{}
	tok, err := jwt.ParseWithClaims(raw, cl, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithTimeFunc(c.now))
	if err != nil || !tok.Valid || cl.Total <= 0 {
		return Session{}
	}

	ids := append([]string(nil), cl.Queue...)
	if cl.Pending != nil {
		ids = append(ids, cl.Pending.ID)
	}
	found, err := c.lookup.Lookup(ctx, ids)
	if err != nil {
		return Session{}
	}

	s := Session{
		ID:       cl.ID,
		Format:   formats.Format(cl.Format),
		Category: cl.Category,
		Review:   cl.Review,
		Total:    cl.Total,
		Correct:  cl.Correct,
		Combo:    cl.Combo,
	}
	for _, id := range cl.Queue {
		if q, ok := found[id]; ok {
			s.Queue = append(s.Queue, q)
		}
	}
	if p := cl.Pending; p != nil {
		if q, ok := found[p.ID]; ok {
			s.Pending = &Result{
				Question:  q,
				IsCorrect: p.Correct,
				Submitted: p.Submitted,
				Canonical: q.Answer,
				Progress:  p.Progress,
				Position:  p.Position,
				Feedback:  p.Feedback,
			}
		}
	}
	if s.Total < len(s.Queue) {
		s.Total = len(s.Queue)
	}
	s.Correct = min(max(s.Correct, 0), s.Total)
	return s
}

// Read decodes the session cookie from r.
func (c *Codec) Read(r *http.Request) Session {
	ck, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}
	}
	return c.Decode(r.Context(), ck.Value)
}

// Write stores s in the session cookie, or clears it for an Idle session.
func (c *Codec) Write(w http.ResponseWriter, s Session, secure bool) error {
	if s.State() == Idle {
		c.Clear(w, secure)
		return nil
	}
	v, err := c.Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    v,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *Codec) Clear(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
