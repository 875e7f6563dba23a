package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/family-scheduler/internal/application"
	"github.com/example/family-scheduler/internal/config"
	httptransport "github.com/example/family-scheduler/internal/http"
	"github.com/example/family-scheduler/internal/notify"
	"github.com/example/family-scheduler/internal/persistence"
	"github.com/example/family-scheduler/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(ctx, cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(pool.DB()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	memberRepo := sqlite.NewMemberRepository(pool)
	eventRepo := sqlite.NewEventRepository(pool)
	noteRepo := sqlite.NewNoteRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	eventService := application.NewEventServiceWithLogger(eventRepo, memberRepo, idGenerator, now, logger)
	memberService := application.NewMemberServiceWithLogger(memberRepo, nil, idGenerator, now, logger)
	noteService := application.NewNoteServiceWithLogger(noteRepo, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(memberRepo, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)

	if err := bootstrapAdmin(ctx, memberRepo, idGenerator, now, logger); err != nil {
		logger.Error("failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}

	feed := application.NewNotificationFeed(application.DefaultFeedCapacity)
	runner := newNotifyRunner(cfg, eventService, feed, logger)
	runner.Start(ctx)
	defer runner.Stop()

	purge := cron.New()
	if _, err := purge.AddFunc(cfg.SessionPurgeCron, func() {
		purgeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := authService.PurgeExpiredSessions(purgeCtx); err != nil {
			logger.Error("failed to purge expired sessions", "error", err)
		}
	}); err != nil {
		logger.Error("failed to schedule session purge", "error", err, "cron", cfg.SessionPurgeCron)
		os.Exit(1)
	}
	purge.Start()
	defer purge.Stop()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(authService, logger),
		Members:       httptransport.NewMemberHandler(memberService, logger),
		Notes:         httptransport.NewNoteHandler(noteService, logger),
		Events:        httptransport.NewEventHandler(eventService, logger),
		Notifications: httptransport.NewNotificationHandler(feed, logger),
		Calendar:      httptransport.NewCalendarHandler(eventService, logger),
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/sessions") {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("family scheduler listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// newNotifyRunner wires the due-signal loop: the event service supplies
// upcoming events, the scheduler picks the ones entering the lead window, and
// matches land in the poll feed.
func newNotifyRunner(cfg config.Config, events *application.EventService, feed *application.NotificationFeed, logger *slog.Logger) *notify.Runner {
	scheduler := notify.NewScheduler(cfg.NotifyLeadTime)

	// Fetch slightly past the lead window so an event never slips between
	// two evaluation ticks.
	window := cfg.NotifyLeadTime + cfg.NotifyEvalEvery

	source := func(ctx context.Context) ([]notify.Event, error) {
		upcoming, err := events.UpcomingEvents(ctx, window)
		if err != nil {
			return nil, err
		}
		out := make([]notify.Event, 0, len(upcoming))
		for _, event := range upcoming {
			seriesID := ""
			if event.SeriesID != nil {
				seriesID = *event.SeriesID
			}
			out = append(out, notify.Event{
				ID:          event.ID,
				SeriesID:    seriesID,
				Title:       event.Title,
				Description: event.Description,
				Color:       event.Color,
				MemberIDs:   event.MemberIDs,
				Start:       event.Start,
				End:         event.End,
			})
		}
		return out, nil
	}

	sink := func(event notify.Event) {
		var seriesID *string
		if event.SeriesID != "" {
			id := event.SeriesID
			seriesID = &id
		}
		feed.Push(application.Notification{
			EventID:   event.ID,
			SeriesID:  seriesID,
			Title:     event.Title,
			Color:     event.Color,
			MemberIDs: event.MemberIDs,
			Start:     event.Start,
			EmittedAt: time.Now(),
		})
	}

	return notify.NewRunner(scheduler, source, sink, notify.RunnerOptions{
		EvaluateEvery: cfg.NotifyEvalEvery,
		CleanupEvery:  cfg.NotifyCleanupEvery,
		Logger:        logger,
	})
}

// bootstrapAdmin seeds the first admin account from FAMILY_ADMIN_EMAIL and
// FAMILY_ADMIN_PASSWORD when the member table is empty. Member creation is
// admin-gated, so without this there is no way to sign in to a fresh install.
func bootstrapAdmin(ctx context.Context, members *sqlite.MemberRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) error {
	email := strings.TrimSpace(strings.ToLower(os.Getenv("FAMILY_ADMIN_EMAIL")))
	password := os.Getenv("FAMILY_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	existing, err := members.ListMembers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	hash, err := application.CreatePasswordHash(password, application.DefaultArgon2idParams)
	if err != nil {
		return err
	}

	created := now()
	if err := members.CreateMember(ctx, persistence.Member{
		ID:           idGenerator(),
		Email:        email,
		DisplayName:  "Admin",
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}); err != nil {
		return err
	}

	logger.Info("bootstrapped admin account", "email", email)
	return nil
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
