package nextory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/handiism/nextory-downloader/internal/http"
	"github.com/handiism/nextory-downloader/internal/nextory/dto"
	"github.com/handiism/nextory-downloader/internal/traceid"
)

// ErrNoActiveSubaccount is returned when the account has no sub-account with
// status "active".
var ErrNoActiveSubaccount = errors.New("no active sub-account")

// AuthState is a step of the login handshake.
type AuthState int

const (
	AuthFetchingSalt AuthState = iota
	AuthPrimaryLogin
	AuthListingAccounts
	AuthSubaccountLogin
	AuthDone
)

func (s AuthState) String() string {
	switch s {
	case AuthFetchingSalt:
		return "fetch salt"
	case AuthPrimaryLogin:
		return "primary login"
	case AuthListingAccounts:
		return "list accounts"
	case AuthSubaccountLogin:
		return "sub-account login"
	case AuthDone:
		return "done"
	default:
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
}

// AuthError is a failure of one login step. It unwraps to the underlying
// *http.APIError, *http.TransportError or ErrNoActiveSubaccount.
type AuthError struct {
	Step AuthState
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login failed at %s: %v", e.Step, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

const (
	saltPath      = "/catalogue/" + http.APIVersion + "/salt"
	loginPath     = "/user/" + http.APIVersion + "/login"
	accountsPath  = "/user/" + http.APIVersion + "/accounts/list"
	memberAccount = dto.AccountTypeMember
)

// Authenticator performs the salted challenge-response login.
type Authenticator struct {
	client *http.Client
	logger *slog.Logger
	newIDs func() *traceid.Generator
}

// NewAuthenticator creates an Authenticator. A nil logger uses slog.Default.
func NewAuthenticator(client *http.Client, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{client: client, logger: logger, newIDs: traceid.New}
}

// Checksum returns the uppercase hex MD5 of the concatenated parts.
func Checksum(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "")))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Login exchanges credentials for a sub-account session.
//
// The handshake:
//  1. fetch a single-use salt
//  2. post username, password and MD5(username+salt+password)
//  3. list sub-accounts with the primary token and pick the first active one
//  4. log in as it with MD5(loginkey+salt)
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	state := AuthFetchingSalt
	fail := func(err error) (*Session, error) {
		return nil, &AuthError{Step: state, Err: err}
	}

	var salt dto.Salt
	if err := a.client.Do(ctx, http.Request{Path: saltPath}, &salt); err != nil {
		return fail(err)
	}

	state = AuthPrimaryLogin
	var primary dto.Login
	err := a.client.Do(ctx, http.Request{
		Method: "POST",
		Path:   loginPath,
		Form: map[string]string{
			"username": username,
			"password": password,
			"checksum": Checksum(username, salt.Salt, password),
		},
	}, &primary)
	if err != nil {
		return fail(err)
	}
	if primary.AccountType != memberAccount {
		a.logger.Warn("unrecognized account type, continuing with sub-account login",
			"accounttype", primary.AccountType)
	}

	state = AuthListingAccounts
	var accounts dto.AccountList
	if err := a.client.Do(ctx, http.Request{Path: accountsPath, Token: primary.Token}, &accounts); err != nil {
		return fail(err)
	}

	loginKey := ""
	for _, sub := range accounts.Accounts {
		if sub.Status == dto.SubAccountActive {
			loginKey = sub.LoginKey
			break
		}
	}
	if loginKey == "" {
		return fail(ErrNoActiveSubaccount)
	}

	state = AuthSubaccountLogin
	var sub dto.Login
	err = a.client.Do(ctx, http.Request{
		Path:  loginPath,
		Token: primary.Token,
		Query: url.Values{
			"loginkey": {loginKey},
			"checksum": {Checksum(loginKey, salt.Salt)},
		},
	}, &sub)
	if err != nil {
		return fail(err)
	}

	a.logger.Debug("logged in", "step", AuthDone)
	return NewSession(sub.Token, a.newIDs()), nil
}
