package streamclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TokenState is the current session token and its expiry
type TokenState struct {
	Token     string
	ExpiresAt time.Time
}

// KeeperOptions configures a SessionKeeper
type KeeperOptions struct {
	// Interval is how often the session is re-verified (default 20m)
	Interval time.Duration
	// RefreshWindow is how close to expiry the token may get before
	// the keeper proactively refreshes it (default 1h)
	RefreshWindow time.Duration
	// OnToken is called with the new state after every refresh
	OnToken func(TokenState)
	// OnExpired is called once when the session is no longer valid
	// and cannot be refreshed. The keeper stops afterwards
	OnExpired func()
	// HTTPClient overrides the default client
	HTTPClient *http.Client
	// Logger receives keeper lifecycle logs
	Logger *zap.Logger
}

func (o *KeeperOptions) withDefaults() {
	if o.Interval <= 0 {
		o.Interval = 20 * time.Minute
	}
	if o.RefreshWindow <= 0 {
		o.RefreshWindow = time.Hour
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// SessionKeeper keeps a session token alive: it re-verifies the token
// on an interval and exchanges it for a fresh one before it expires
type SessionKeeper struct {
	baseURL string
	opts    KeeperOptions

	mu    sync.RWMutex
	state TokenState

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewSessionKeeper creates a keeper for the auth endpoints under
// baseURL (e.g. "https://api.example.com/api/v1")
func NewSessionKeeper(baseURL string, initial TokenState, opts KeeperOptions) *SessionKeeper {
	opts.withDefaults()
	return &SessionKeeper{
		baseURL: baseURL,
		opts:    opts,
		state:   initial,
		done:    make(chan struct{}),
	}
}

// Token returns the current session token
func (k *SessionKeeper) Token() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.state.Token
}

// State returns the current token state
func (k *SessionKeeper) State() TokenState {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.state
}

// Start begins the keep-alive loop. It returns immediately; the loop
// runs until ctx is cancelled, Stop is called, or the session expires
func (k *SessionKeeper) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	k.cancel = cancel
	go k.run(runCtx)
}

// Stop ends the keep-alive loop and waits for it to finish. Stopping
// a keeper that was never started is a no-op
func (k *SessionKeeper) Stop() {
	k.closeOnce.Do(func() {
		if k.cancel == nil {
			close(k.done)
			return
		}
		k.cancel()
		<-k.done
	})
}

// Done is closed when the keeper has stopped
func (k *SessionKeeper) Done() <-chan struct{} {
	return k.done
}

func (k *SessionKeeper) run(ctx context.Context) {
	defer close(k.done)

	ticker := time.NewTicker(k.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !k.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one maintenance pass and reports whether the keeper
// should continue
func (k *SessionKeeper) tick(ctx context.Context) bool {
	state := k.State()

	if time.Until(state.ExpiresAt) <= k.opts.RefreshWindow {
		if err := k.refresh(ctx, state.Token); err != nil {
			k.opts.Logger.Warn("Session refresh failed", zap.Error(err))
			return k.expire()
		}
		return true
	}

	if err := k.verify(ctx, state.Token); err != nil {
		k.opts.Logger.Warn("Session verification failed", zap.Error(err))
		return k.expire()
	}
	return true
}

func (k *SessionKeeper) expire() bool {
	if k.opts.OnExpired != nil {
		k.opts.OnExpired()
	}
	return false
}

func (k *SessionKeeper) verify(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+"/auth/verify", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("verify returned status %d", resp.StatusCode)
	}
	return nil
}

func (k *SessionKeeper) refresh(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/auth/refresh", bytes.NewReader(nil))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if !envelope.Success || envelope.Data.Token == "" {
		return fmt.Errorf("refresh response carried no token")
	}

	state := TokenState{Token: envelope.Data.Token, ExpiresAt: envelope.Data.ExpiresAt}
	k.mu.Lock()
	k.state = state
	k.mu.Unlock()

	k.opts.Logger.Info("Session token refreshed",
		zap.Time("expires_at", state.ExpiresAt))

	if k.opts.OnToken != nil {
		k.opts.OnToken(state)
	}
	return nil
}
