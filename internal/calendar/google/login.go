package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

type loginResult struct {
	token  *oauth2.Token
	denied bool
	err    error
}

// RequestPermission implements calendar.Provider with a loopback OAuth consent: the
// consent page is opened and the redirect is caught on the callback address.
func (p *Provider) RequestPermission(ctx context.Context) (bool, error) {
	oauthCfg, err := p.oauthConfig()
	if err != nil {
		return false, err
	}

	ln, err := net.Listen("tcp", p.cfg.CallbackAddr)
	if err != nil {
		return false, fmt.Errorf("google: listening for oauth callback: %w", err)
	}
	oauthCfg.RedirectURL = "http://" + ln.Addr().String() + callbackPath

	state := "galopen-" + uuid.NewString()
	results := make(chan loginResult, 1)
	send := func(r loginResult) {
		select {
		case results <- r:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query()
		if query.Get("state") != state {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "oauth link is not valid")
			return
		}
		if e := query.Get("error"); e != "" {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "Access was not granted, you can close this window.")
			send(loginResult{denied: e == "access_denied", err: deniedErr(e)})
			return
		}
		tok, err := oauthCfg.Exchange(req.Context(), query.Get("code"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "Unable to retrieve token:", err)
			send(loginResult{err: err})
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "All good, you can close this window!")
		send(loginResult{token: tok})
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.WithError(err).Warn("oauth callback server stopped")
		}
	}()
	defer server.Close()

	authURL := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	p.log.WithField("url", authURL).Info("opening google consent page")
	if err := p.openURL(authURL); err != nil {
		p.log.WithError(err).Warnf("could not open browser, go to %s", authURL)
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-results:
		if res.denied {
			return false, nil
		}
		if res.err != nil {
			return false, fmt.Errorf("google: oauth: %w", res.err)
		}
		if err := p.saveToken(res.token); err != nil {
			return false, fmt.Errorf("google: saving token: %w", err)
		}
		return true, nil
	}
}

func deniedErr(reason string) error {
	if reason == "access_denied" {
		return nil
	}
	return errors.New(reason)
}
