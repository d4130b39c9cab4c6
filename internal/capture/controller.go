package capture

import (
	"sync"
	"time"

	"github.com/inabajunmr/autosequence/internal/logging"
	"go.uber.org/zap"
)

// Controller gates whether network events are admitted to the session. Two
// states: idle and recording. While idle, events are accepted and ignored.
type Controller struct {
	mu        sync.Mutex
	recording bool
	session   *Session
	logger    *zap.Logger
}

// NewController creates a Controller over the given session, initially idle.
func NewController(session *Session, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{session: session, logger: logger}
}

// Start switches to recording and wipes the prior capture. Starting while
// already recording is idempotent but still wipes.
func (c *Controller) Start() {
	c.mu.Lock()
	c.recording = true
	c.mu.Unlock()
	c.session.Reset()
	c.logger.Info("recording started")
}

// Stop switches to idle, retaining the captured ledger.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.recording = false
	c.mu.Unlock()
	c.logger.Info("recording stopped")
}

// Clear wipes the capture without changing the recording state.
func (c *Controller) Clear() {
	c.session.Reset()
	c.logger.Info("records cleared")
}

// Recording reports whether events are currently admitted.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Session returns the controlled session.
func (c *Controller) Session() *Session { return c.session }

// Handle admits one network event. While idle the event is dropped without
// being recorded or queued. Returns true when the event mutated the ledger.
func (c *Controller) Handle(ev NetworkEvent, now time.Time) bool {
	if !c.Recording() {
		return false
	}

	switch ev.Kind {
	case EventInitiated:
		_, ok := c.session.Create(ev.Method, ev.URL, ev.ResourceType, ev.TabID, now)
		return ok
	case EventCompleted:
		_, ok := c.session.Complete(ev.URL, ev.TabID, ev.StatusCode, now)
		return ok
	case EventRedirected:
		_, ok := c.session.Redirect(ev.URL, ev.TabID, ev.StatusCode, ev.RedirectURL, now)
		return ok
	case EventErrored:
		_, ok := c.session.Fail(ev.URL, ev.TabID, ev.Error, now)
		return ok
	default:
		c.logger.Warn("unknown event kind", logging.EventKind(string(ev.Kind)))
		return false
	}
}
