package apiclient

import (
	"context"

	"github.com/rs/zerolog"
)

// GuardState is the route guard's verdict for one navigation.
type GuardState string

const (
	GuardAllow             GuardState = "allow"
	GuardForceSetup        GuardState = "force-setup"
	GuardForceLogin        GuardState = "force-login"
	GuardRedirectLastRoute GuardState = "redirect-last-route"
)

// GuardDecision pairs the verdict with the concrete redirect target.
type GuardDecision struct {
	State    GuardState
	Redirect string
}

// Guard decides, per navigation, whether a route renders or redirects. It
// re-fetches setup status on every evaluation rather than caching it; setup
// can complete between two navigations.
type Guard struct {
	client   *Client
	sessions *SessionStore
	logger   zerolog.Logger
}

func NewGuard(client *Client, sessions *SessionStore, logger zerolog.Logger) *Guard {
	return &Guard{client: client, sessions: sessions, logger: logger}
}

// Evaluate runs the guard for path. A failed status fetch is logged and
// treated as "setup not required" so a broken backend cannot lock every user
// out; the risk is accepted.
func (g *Guard) Evaluate(ctx context.Context, path string) GuardDecision {
	var status SetupStatus
	if fetched, err := g.client.CheckSetup(ctx); err != nil {
		g.logger.Error().Err(err).Msg("setup status fetch failed, assuming setup done")
	} else {
		status = *fetched
	}

	loggedIn := g.sessions.LoggedIn()
	onSetup := isSetupPath(path)

	switch {
	case status.ShouldSetup || status.Needs2FASetup:
		if onSetup {
			return GuardDecision{State: GuardAllow}
		}
		return GuardDecision{State: GuardForceSetup, Redirect: "/setup"}
	case onSetup:
		if loggedIn {
			return GuardDecision{State: GuardRedirectLastRoute, Redirect: g.sessions.LastRoute()}
		}
		return GuardDecision{State: GuardForceLogin, Redirect: "/login"}
	case !loggedIn:
		return GuardDecision{State: GuardForceLogin, Redirect: "/login"}
	}

	g.sessions.RecordRoute(path)
	return GuardDecision{State: GuardAllow}
}
