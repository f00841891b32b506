package client

import (
	"context"
	"errors"
	"time"
)

// State is the submit-flow state of an auth form.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// ErrAlreadyAuthenticated means a live session exists and the form was not
// shown. Callers land on the home route instead.
var ErrAlreadyAuthenticated = errors.New("already authenticated")

// HomeRoute is where a successful login lands.
const HomeRoute = "/"

// Flow drives an auth form: guard on an existing session, submit, persist
// the returned session, and report state transitions.
type Flow struct {
	client   *Client
	sessions *SessionStore
	state    State

	// OnState, when set, observes every state transition.
	OnState func(State)

	// Redirect is the requested post-login destination. It is recorded but
	// not applied; Destination always returns the home route.
	Redirect string
}

// NewFlow creates a Flow over the given client and session store
func NewFlow(c *Client, sessions *SessionStore) *Flow {
	return &Flow{client: c, sessions: sessions, state: StateIdle}
}

// State returns the current form state.
func (f *Flow) State() State {
	return f.state
}

func (f *Flow) setState(s State) {
	f.state = s
	if f.OnState != nil {
		f.OnState(s)
	}
}

// Destination is the route to land on after authentication.
func (f *Flow) Destination() string {
	return HomeRoute
}

// guard implements the on-mount check: with a live session present the form
// is never shown.
func (f *Flow) guard() error {
	session, err := f.sessions.Load()
	if err != nil {
		return nil // no usable session, proceed to the form
	}
	if session.Expired(time.Now()) {
		return nil
	}
	return ErrAlreadyAuthenticated
}

// Login submits credentials and persists the returned session. On failure
// the state returns to idle and no session is stored.
func (f *Flow) Login(ctx context.Context, email, password string) (*Session, error) {
	if err := f.guard(); err != nil {
		return nil, err
	}

	f.setState(StateSubmitting)

	resp, err := f.client.Login(ctx, email, password)
	if err != nil {
		f.setState(StateError)
		f.setState(StateIdle)
		return nil, err
	}

	session := &Session{Token: resp.Token}
	if resp.User != nil {
		session.User = *resp.User
	}
	if err := f.sessions.Save(session); err != nil {
		f.setState(StateError)
		f.setState(StateIdle)
		return nil, err
	}

	f.setState(StateSuccess)
	return session, nil
}

// Register submits a registration and persists the returned session.
func (f *Flow) Register(ctx context.Context, name, email, password, avatarURL string) (*Session, error) {
	if err := f.guard(); err != nil {
		return nil, err
	}

	f.setState(StateSubmitting)

	resp, err := f.client.Register(ctx, name, email, password, avatarURL)
	if err != nil {
		f.setState(StateError)
		f.setState(StateIdle)
		return nil, err
	}

	session := &Session{Token: resp.Token}
	if resp.User != nil {
		session.User = *resp.User
	}
	if err := f.sessions.Save(session); err != nil {
		f.setState(StateError)
		f.setState(StateIdle)
		return nil, err
	}

	f.setState(StateSuccess)
	return session, nil
}
