package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/agent"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/clinics"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db/models"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/dedup"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/messages"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/session"
)

// Sender delivers one text to a user on a platform; true means the
// channel accepted the message.
type Sender interface {
	SendMessage(ctx context.Context, userID, platform, text string) bool
}

// Store is the slice of the persistence layer the dispatcher touches.
// *db.Store and *db.CachedStore both satisfy it.
type Store interface {
	IsNewUser(ctx context.Context, userID string) (bool, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	History(ctx context.Context, userID string, window time.Duration, limit int) ([]models.SymptomRecord, error)
	Country(ctx context.Context, userID string) (string, error)
	SaveLocation(ctx context.Context, userID string, lat, lon float64, address string) error
	SaveCountry(ctx context.Context, userID, country string) error
	SaveFeedback(ctx context.Context, userID, feedback string) (bool, error)
}

// ProfileFlow is the synchronous profile-setup machine.
type ProfileFlow interface {
	Active(userID string) bool
	Begin(userID string) string
	Handle(ctx context.Context, userID, platform, text string) string
}

// Analyzer runs one consultation turn. *agent.Engine satisfies it.
type Analyzer interface {
	Run(ctx context.Context, task string, opts agent.RunOptions) (*agent.Final, *agent.Context, error)
}

// ClinicFinder resolves addresses and nearby facilities.
type ClinicFinder interface {
	FindNearby(ctx context.Context, lat, lon, radiusKm float64) ([]clinics.Facility, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) string
}

// FollowUpRouter claims texts that answer a delivered check-in.
type FollowUpRouter interface {
	HandleResponse(ctx context.Context, userID, text string) (reply string, handled bool, err error)
}

type Config struct {
	// MaxConcurrent caps analysis units across all users.
	MaxConcurrent int
	// QueueCap bounds the per-user backlog; beyond it events are
	// answered with an apology instead of queued.
	QueueCap int
	// AnalysisTimeout bounds one async unit end to end.
	AnalysisTimeout time.Duration

	HistoryWindow  time.Duration
	HistoryLimit   int
	ClinicRadiusKm float64
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrent:   8,
		QueueCap:        16,
		AnalysisTimeout: 5 * time.Minute,
		HistoryWindow:   365 * 24 * time.Hour,
		HistoryLimit:    5,
		ClinicRadiusKm:  5,
	}
}

// Deps are the dispatcher's collaborators. All fields are required
// except Log.
type Deps struct {
	Sessions *session.Store
	Dedup    *dedup.Cache
	Profile  ProfileFlow
	Store    Store
	Engine   Analyzer
	Sender   Sender
	Clinics  ClinicFinder
	FollowUp FollowUpRouter
	Catalog  messages.Catalog
	Log      *slog.Logger
}

type Dispatcher struct {
	cfg      Config
	sessions *session.Store
	dedup    *dedup.Cache
	profile  ProfileFlow
	store    Store
	engine   Analyzer
	sender   Sender
	clinics  ClinicFinder
	followup FollowUpRouter
	cat      messages.Catalog
	log      *slog.Logger
	pool     *Pool
}

func New(cfg Config, deps Deps) *Dispatcher {
	def := DefaultConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.QueueCap <= 0 {
		cfg.QueueCap = def.QueueCap
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = def.AnalysisTimeout
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.ClinicRadiusKm <= 0 {
		cfg.ClinicRadiusKm = def.ClinicRadiusKm
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		cfg:      cfg,
		sessions: deps.Sessions,
		dedup:    deps.Dedup,
		profile:  deps.Profile,
		store:    deps.Store,
		engine:   deps.Engine,
		sender:   deps.Sender,
		clinics:  deps.Clinics,
		followup: deps.FollowUp,
		cat:      deps.Catalog,
		log:      log,
		pool:     NewPool(cfg.MaxConcurrent, cfg.QueueCap),
	}
}

// Close drains the queued analysis units and stops the workers.
func (d *Dispatcher) Close() {
	d.pool.Close()
}

// Handle routes one inbound event. It returns once the event is
// answered synchronously or accepted onto the user's work queue; the
// analysis reply itself is delivered later by the async unit.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.MessageID != "" && d.dedup.Seen(ev.MessageID) {
		d.log.Info("event_duplicate",
			"user_id", ev.UserID,
			"platform", ev.Platform,
			"message_id", ev.MessageID,
		)
		return nil
	}
	if ev.MessageID == "" {
		// Events without a wire id still need one for log correlation.
		// Synthetic ids are assigned after the dedup check so they never
		// enter the seen cache.
		ev.MessageID = "msg_" + uuid.NewString()
	}
	if n := d.sessions.SweepInactive(); n > 0 {
		d.log.Info("sessions_swept", "count", n)
	}
	d.sessions.Touch(ev.UserID)

	switch ev.Kind {
	case KindText:
		return d.handleText(ctx, ev)
	case KindImage:
		return d.handleImage(ctx, ev)
	default:
		return d.handleLocation(ctx, ev)
	}
}

func (d *Dispatcher) handleText(ctx context.Context, ev Event) error {
	text := strings.TrimSpace(ev.Text)

	if d.profile.Active(ev.UserID) {
		d.send(ctx, ev, d.profile.Handle(ctx, ev.UserID, ev.Platform, text))
		return nil
	}
	if d.beginProfileIfNew(ctx, ev, text) {
		return nil
	}
	if handled, err := d.runCommand(ctx, ev, strings.ToLower(text)); handled {
		return err
	}
	reply, handled, err := d.followup.HandleResponse(ctx, ev.UserID, text)
	if err != nil {
		// Fall through to analysis; the reply still gets answered.
		d.log.Warn("followup_route_error", "user_id", ev.UserID, "error", err)
	} else if handled {
		d.send(ctx, ev, reply)
		return nil
	}
	return d.enqueue(ctx, ev, d.cat.ProcessingText, func(jctx context.Context) {
		d.analyze(jctx, ev, inputUpdate{text: text}, false)
	})
}

func (d *Dispatcher) handleImage(ctx context.Context, ev Event) error {
	if d.profile.Active(ev.UserID) {
		d.send(ctx, ev, d.cat.ProfileHoldImage)
		return nil
	}
	if d.beginProfileIfNew(ctx, ev, "") {
		return nil
	}
	caption := strings.TrimSpace(ev.Text)
	return d.enqueue(ctx, ev, d.cat.ProcessingImage, func(jctx context.Context) {
		d.analyze(jctx, ev, inputUpdate{text: caption, image: ev.Image}, false)
	})
}

func (d *Dispatcher) handleLocation(ctx context.Context, ev Event) error {
	if d.profile.Active(ev.UserID) {
		d.send(ctx, ev, d.cat.ProfileHoldLoc)
		return nil
	}
	if d.beginProfileIfNew(ctx, ev, "") {
		return nil
	}
	loc := *ev.Location
	if d.sessions.Get(ev.UserID).AwaitingClinicLocation {
		return d.enqueue(ctx, ev, d.cat.ProcessingLocation, func(jctx context.Context) {
			d.recommendClinics(jctx, ev, loc)
		})
	}
	return d.enqueue(ctx, ev, d.cat.ProcessingLocation, func(jctx context.Context) {
		d.recordLocation(jctx, ev, loc)
	})
}

// beginProfileIfNew starts profile setup for users without a profile or
// history. A few commands bypass entry so help stays reachable.
func (d *Dispatcher) beginProfileIfNew(ctx context.Context, ev Event, text string) bool {
	switch strings.ToLower(text) {
	case "skip", "help", "emergency":
		return false
	}
	isNew, err := d.store.IsNewUser(ctx, ev.UserID)
	if err != nil {
		d.log.Warn("new_user_check_error", "user_id", ev.UserID, "error", err)
		return false
	}
	if !isNew {
		return false
	}
	d.send(ctx, ev, d.profile.Begin(ev.UserID))
	return true
}

// enqueue sends the processing acknowledgment, then puts the job on the
// user's queue. A full queue is answered with an apology.
func (d *Dispatcher) enqueue(ctx context.Context, ev Event, ack string, job func(context.Context)) error {
	d.send(ctx, ev, ack)
	err := d.pool.Submit(ev.UserID, func() {
		// Detached from the webhook context: units are never cancelled
		// once accepted, only bounded by the analysis timeout.
		jctx, cancel := context.WithTimeout(context.Background(), d.cfg.AnalysisTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("analysis_panic", "user_id", ev.UserID, "message_id", ev.MessageID, "panic", r)
				d.send(jctx, ev, d.cat.Apology)
			}
		}()
		job(jctx)
	})
	if err != nil {
		d.log.Warn("event_enqueue_failed", "user_id", ev.UserID, "message_id", ev.MessageID, "error", err)
		d.send(ctx, ev, d.cat.Apology)
		return err
	}
	d.log.Debug("unit_enqueued", "user_id", ev.UserID, "message_id", ev.MessageID)
	return nil
}

func (d *Dispatcher) send(ctx context.Context, ev Event, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if !d.sender.SendMessage(ctx, ev.UserID, ev.Platform, text) {
		d.log.Warn("send_rejected", "user_id", ev.UserID, "platform", ev.Platform)
	}
}
