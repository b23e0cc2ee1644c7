// handlers/account_routes.go
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"qube-quest/middleware"
	"qube-quest/models"
	"qube-quest/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// streamKeepAlive is how often an idle account stream sends a comment line.
var streamKeepAlive = 15 * time.Second

// AccountView is the JSON shape of a user's balance and cubes.
type AccountView struct {
	Address   string                `json:"address"`
	Email     string                `json:"email,omitempty"`
	Points    int64                 `json:"points"`
	Cubes     map[models.Tier]int64 `json:"cubes"`
	Version   int64                 `json:"version"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func accountView(a *models.UserAccount) AccountView {
	return AccountView{
		Address:   a.Address,
		Email:     a.Email,
		Points:    a.Points,
		Cubes:     a.Cubes.Map(),
		Version:   a.Version,
		UpdatedAt: a.UpdatedAt,
	}
}

func snapshotView(s models.AccountSnapshot) AccountView {
	return AccountView{
		Address:   s.Address,
		Points:    s.Points,
		Cubes:     s.Cubes.Map(),
		Version:   s.Version,
		UpdatedAt: s.UpdatedAt,
	}
}

func SetupAccountRoutes(app *fiber.App, identity *services.IdentityResolver, hub *services.Hub, sseAuth fiber.Handler, logger *zap.Logger) {
	userCtx := middleware.UserContextMiddleware(logger)

	// 👤 Called by the frontend after wallet login; safe to repeat.
	app.Post("/user/ensure", userCtx, func(c *fiber.Ctx) error {
		var body struct {
			Email string `json:"email"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
			}
		}
		email := body.Email
		if email == "" {
			email, _ = c.Locals(middleware.LocalEmail).(string)
		}

		created, err := identity.EnsureUser(c.UserContext(), middleware.UserID(c), email)
		if err != nil {
			return respondError(c, logger, err)
		}
		acct, err := identity.Account(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, logger, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(fiber.Map{"created": created, "account": accountView(acct)})
	})

	app.Get("/user/account", userCtx, func(c *fiber.Ctx) error {
		acct, err := identity.Account(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(accountView(acct))
	})

	app.Get("/user/account/stream", sseAuth, func(c *fiber.Ctx) error {
		addr := middleware.UserID(c)

		initial, updates, unsubscribe, err := subscribeAccount(c.UserContext(), identity, hub, addr)
		if err != nil {
			return respondError(c, logger, err)
		}

		// SSE headers
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		done := c.Context().Done()

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer unsubscribe()
			if err := streamAccount(w, initial, updates, streamKeepAlive, done); err != nil {
				logger.Debug("account stream closed", zap.String("address", addr), zap.Error(err))
			}
		})
		return nil
	})
}

// subscribeAccount registers for updates of addr and then reads its current
// state, so a commit landing between the two still reaches the stream.
// Updates at or below the initial version are dropped by streamAccount.
func subscribeAccount(ctx context.Context, identity *services.IdentityResolver, hub *services.Hub, addr string) (models.AccountSnapshot, <-chan models.AccountSnapshot, func(), error) {
	updates := make(chan models.AccountSnapshot, 8)
	unsubscribe := hub.Subscribe(addr, func(s models.AccountSnapshot) {
		select {
		case updates <- s:
		default:
			// a slow client only needs the newest state
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- s:
			default:
			}
		}
	})

	acct, err := identity.Account(ctx, addr)
	if err != nil {
		unsubscribe()
		return models.AccountSnapshot{}, nil, nil, err
	}
	return acct.Snapshot(), updates, unsubscribe, nil
}

// streamAccount writes the initial snapshot and then every newer one as an
// "account" event until the client goes away or done closes. Snapshots at or
// below the last written version are skipped.
func streamAccount(w *bufio.Writer, initial models.AccountSnapshot, updates <-chan models.AccountSnapshot, keepAlive time.Duration, done <-chan struct{}) error {
	last := initial.Version
	if err := writeAccountEvent(w, initial); err != nil {
		return err
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case s := <-updates:
			if s.Version <= last {
				continue
			}
			last = s.Version
			if err := writeAccountEvent(w, s); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(":\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		case <-done:
			return nil
		}
	}
}

func writeAccountEvent(w *bufio.Writer, s models.AccountSnapshot) error {
	payload, err := json.Marshal(snapshotView(s))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: account\ndata: %s\n\n", payload); err != nil {
		return err
	}
	// flush error means the client disconnected
	return w.Flush()
}
