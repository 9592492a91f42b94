// Package auth owns accounts and login sessions.
package auth

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"campuscrave/globals"
	"campuscrave/models"
	"campuscrave/persist"
	"campuscrave/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrValidation         = errors.New("invalid registration")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("no active session")
)

type RegisterInput struct {
	Name            string      `json:"name" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Password        string      `json:"password" validate:"required,min=6"`
	ConfirmPassword string      `json:"confirmPassword" validate:"eqfield=Password"`
	Role            models.Role `json:"role" validate:"required,oneof=STUDENT VENDOR DELIVERY"`
}

// Session is a logged-in user. Carts and the JWT are keyed by its ID.
type Session struct {
	ID        string      `json:"id" validate:"required"`
	User      models.User `json:"user"`
	CreatedAt time.Time   `json:"createdAt"`
}

type Store struct {
	mu       sync.RWMutex
	accounts []models.Account
	sessions map[string]Session
	mirror   persist.Mirror
	validate *validator.Validate
	cost     int
	onLogout []func(sessionID string)
}

// NewStore builds the identity store from previously persisted accounts and sessions.
func NewStore(accounts []models.Account, sessions []Session, mirror persist.Mirror) *Store {
	if mirror == nil {
		mirror = persist.Discard{}
	}
	s := &Store{
		accounts: append([]models.Account(nil), accounts...),
		sessions: make(map[string]Session, len(sessions)),
		mirror:   mirror,
		validate: newValidator(),
		cost:     bcrypt.DefaultCost,
	}
	for _, sess := range sessions {
		s.sessions[sess.ID] = sess
	}
	return s
}

// OnLogout registers fn to run after a session ends.
func (s *Store) OnLogout(fn func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Register creates an account and logs it in. Nothing changes on error.
func (s *Store) Register(in RegisterInput) (Session, error) {
	in.Email = utils.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Session{}, errors.Wrap(ErrValidation, describe(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Session{}, errors.Wrap(err, "hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accountIndex(in.Email) >= 0 {
		return Session{}, errors.Wrap(ErrEmailTaken, in.Email)
	}

	id := uuid.NewString()
	user := models.User{
		ID:     id,
		Name:   in.Name,
		Email:  in.Email,
		Role:   in.Role,
		Avatar: "https://i.pravatar.cc/150?u=" + id,
	}
	if in.Role == models.RoleVendor {
		user.VendorID = globals.DemoVendorID
	}
	s.accounts = append(s.accounts, models.Account{User: user, PasswordHash: string(hash)})
	s.mirror.Mirror(globals.UsersKey, s.accounts)

	return s.openSession(user), nil
}

func (s *Store) Login(email, password string) (Session, error) {
	email = utils.NormalizeEmail(email)

	s.mu.RLock()
	i := s.accountIndex(email)
	var acc models.Account
	if i >= 0 {
		acc = s.accounts[i]
	}
	s.mu.RUnlock()

	if i < 0 {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openSession(acc.User), nil
}

// Logout ends the session. It reports false when there was none.
func (s *Store) Logout(sessionID string) bool {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		s.mirror.Forget(globals.SessionKeyPrefix + sessionID)
	}
	hooks := append([]func(string){}, s.onLogout...)
	s.mu.Unlock()

	if !ok {
		return false
	}
	for _, fn := range hooks {
		fn(sessionID)
	}
	return true
}

func (s *Store) Session(sessionID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

// Users lists every account without its credential.
func (s *Store) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.User)
	}
	return out
}

func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) openSession(u models.User) Session {
	sess := Session{ID: uuid.NewString(), User: u, CreatedAt: time.Now().UTC()}
	s.sessions[sess.ID] = sess
	s.mirror.Mirror(globals.SessionKeyPrefix+sess.ID, sess)
	return sess
}

func (s *Store) accountIndex(email string) int {
	for i := range s.accounts {
		if utils.NormalizeEmail(s.accounts[i].Email) == email {
			return i
		}
	}
	return -1
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describe turns validator output into a message fit for the register form.
func describe(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err.Error()
	}
	fe := fields[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "email is not valid"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "eqfield":
		return "passwords do not match"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
