package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/fleet-portal/internal/pkg/log"
	"github.com/pribylovaa/fleet-portal/internal/pkg/redact"
)

// DefaultClockSkew — запас до exp, после которого токен считается истекающим.
const DefaultClockSkew = 30 * time.Second

//go:generate mockgen -destination=../../mocks/mock_refresher.go -package=mocks github.com/pribylovaa/fleet-portal/internal/session Refresher

// Refresher обменивает (возможно истёкший) access и refresh на новую пару.
//
// Ошибки должны оборачивать ErrRefreshRejected либо ErrRefreshUnavailable;
// прочие ошибки шлюз трактует как ErrRefreshUnavailable.
type Refresher interface {
	Refresh(ctx context.Context, accessToken, refreshToken string) (CredentialPair, error)
}

// Observer получает итоги работы шлюза (метрики). Вызывается синхронно.
type Observer interface {
	ObserveGate(outcome string)
	ObserveRefresh(outcome string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveGate(string)                   {}
func (nopObserver) ObserveRefresh(string, time.Duration) {}

// State — состояние автомата шлюза.
type State uint8

const (
	// StateReadCredentials — начальное: чтение cookie.
	StateReadCredentials State = iota
	// StateNoAccessToken — access-cookie нет (терминальное, анонимный запрос).
	StateNoAccessToken
	// StateDecoding — разбор access-токена и проверка формы claims.
	StateDecoding
	// StateNotYetValid — проверка nbf.
	StateNotYetValid
	// StateFreshnessCheck — exp минус запас ещё в будущем?
	StateFreshnessCheck
	// StateNeedsRefresh — единственный сетевой вызов: ротация пары.
	StateNeedsRefresh
	// StateAuthenticated — терминальное, успех.
	StateAuthenticated
	// StateReject — терминальное, анонимный запрос.
	StateReject
)

var stateNames = [...]string{
	StateReadCredentials: "read_credentials",
	StateNoAccessToken:   "no_access_token",
	StateDecoding:        "decoding",
	StateNotYetValid:     "not_yet_valid",
	StateFreshnessCheck:  "freshness_check",
	StateNeedsRefresh:    "needs_refresh",
	StateAuthenticated:   "authenticated",
	StateReject:          "reject",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// Terminal сообщает, завершает ли состояние обработку.
func (s State) Terminal() bool {
	return s == StateNoAccessToken || s == StateAuthenticated || s == StateReject
}

// Result — итог Evaluate.
type Result struct {
	Identity Identity
	// State — терминальное состояние.
	State State
	// Refreshed — пара была ротирована и записана в ответ.
	Refreshed bool
	// Cleared — обе cookie были удалены.
	Cleared bool
	// Err — причина StateReject.
	Err error
}

// Outcome — короткая метка итога для логов и метрик.
func (r Result) Outcome() string {
	switch r.State {
	case StateNoAccessToken:
		return "anonymous"
	case StateAuthenticated:
		if r.Refreshed {
			return "refreshed"
		}
		return "authenticated"
	}
	switch {
	case errors.Is(r.Err, ErrInternal):
		return "internal"
	case errors.Is(r.Err, ErrDecode):
		return "decode_error"
	case errors.Is(r.Err, ErrClaimsInvalid):
		return "claims_invalid"
	case errors.Is(r.Err, ErrNoRefreshToken):
		return "no_refresh_token"
	case errors.Is(r.Err, ErrRefreshRejected):
		return "refresh_rejected"
	case errors.Is(r.Err, ErrRefreshUnavailable):
		return "refresh_unavailable"
	default:
		return "rejected"
	}
}

// Gate — шлюз сессии: по cookie запроса определяет Identity и при необходимости
// ротирует пару токенов. Gate не хранит состояния запросов и безопасен для
// конкурентного использования.
type Gate struct {
	store     *CookieStore
	refresher Refresher
	skew      time.Duration
	now       func() time.Time
	observer  Observer
}

// Option настраивает Gate.
type Option func(*Gate)

// WithClockSkew задаёт запас до exp; отрицательные значения игнорируются.
func WithClockSkew(d time.Duration) Option {
	return func(g *Gate) {
		if d >= 0 {
			g.skew = d
		}
	}
}

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

func WithObserver(o Observer) Option {
	return func(g *Gate) {
		if o != nil {
			g.observer = o
		}
	}
}

// NewGate собирает шлюз. store и refresher обязательны.
func NewGate(store *CookieStore, refresher Refresher, opts ...Option) *Gate {
	g := &Gate{
		store:     store,
		refresher: refresher,
		skew:      DefaultClockSkew,
		now:       time.Now,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// evaluation — локальное состояние одного прохода автомата.
type evaluation struct {
	w     http.ResponseWriter
	r     *http.Request
	now   time.Time
	creds CredentialPair

	claims    Claims
	token     string
	refreshed bool
	cleared   bool
	err       error
}

// Evaluate прогоняет автомат для запроса r. Побочные эффекты — только cookie в w
// (запись новой пары либо очистка). Evaluate никогда не паникует и не возвращает
// ошибку наружу: любой сбой даёт анонимную Identity.
func (g *Gate) Evaluate(ctx context.Context, w http.ResponseWriter, r *http.Request) (res Result) {
	const op = "session.Gate.Evaluate"

	defer func() {
		if rec := recover(); rec != nil {
			res = Result{
				Identity: Anonymous(),
				State:    StateReject,
				Err:      fmt.Errorf("%s: %w: %v", op, ErrInternal, rec),
			}
			g.report(ctx, res)
		}
	}()

	ev := &evaluation{w: w, r: r, now: g.now()}
	st := StateReadCredentials
	for !st.Terminal() {
		st = g.step(ctx, ev, st)
	}

	res = ev.result(st)
	g.report(ctx, res)
	return res
}

// step — функция переходов. Порядок фиксирован: чтение, разбор, nbf, свежесть,
// не более одного refresh, затем запись cookie.
func (g *Gate) step(ctx context.Context, ev *evaluation, st State) State {
	switch st {
	case StateReadCredentials:
		ev.creds = g.store.ReadPair(ev.r)
		if ev.creds.AccessToken == "" {
			return StateNoAccessToken
		}
		return StateDecoding

	case StateDecoding:
		c, err := Decode(ev.creds.AccessToken)
		if err == nil {
			err = c.validateShape()
		}
		if err != nil {
			// Cookie не трогаем: это может быть чужой мусор, а не наша сессия.
			ev.err = err
			return StateReject
		}
		ev.claims = c
		ev.token = ev.creds.AccessToken
		return StateNotYetValid

	case StateNotYetValid:
		if err := ev.claims.validateNotBefore(ev.now); err != nil {
			ev.err = err
			return StateReject
		}
		return StateFreshnessCheck

	case StateFreshnessCheck:
		if ev.claims.ExpiresAt.Add(-g.skew).Unix() > ev.now.Unix() {
			return StateAuthenticated
		}
		return StateNeedsRefresh

	case StateNeedsRefresh:
		return g.refresh(ctx, ev)

	default:
		ev.err = fmt.Errorf("unexpected state %s: %w", st, ErrInternal)
		return StateReject
	}
}

func (g *Gate) refresh(ctx context.Context, ev *evaluation) State {
	const op = "session.Gate.refresh"

	if ev.creds.RefreshToken == "" {
		ev.err = fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
		return StateReject
	}

	start := time.Now()
	pair, err := g.refresher.Refresh(ctx, ev.creds.AccessToken, ev.creds.RefreshToken)
	if err == nil && (pair.AccessToken == "" || pair.RefreshToken == "") {
		err = fmt.Errorf("%s: empty token pair: %w", op, ErrRefreshRejected)
	}
	err = classifyRefresh(err)
	g.observer.ObserveRefresh(refreshOutcome(err), time.Since(start))

	// Запрос уже завершён: ответ отдан, cookie писать некуда.
	if cerr := ctx.Err(); cerr != nil {
		ev.err = fmt.Errorf("%s: request gone: %w: %w", op, ErrRefreshUnavailable, cerr)
		return StateReject
	}

	if err != nil {
		g.store.ClearPair(ev.w)
		ev.cleared = true
		ev.err = fmt.Errorf("%s: %w", op, err)
		return StateReject
	}

	g.store.WritePair(ev.w, pair)
	ev.token = pair.AccessToken
	ev.refreshed = true
	// Claims остаются от исходного токена: ротация не меняет личность.
	return StateAuthenticated
}

func classifyRefresh(err error) error {
	if err == nil || errors.Is(err, ErrRefreshRejected) || errors.Is(err, ErrRefreshUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRefreshUnavailable, err)
}

func refreshOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRefreshRejected):
		return "rejected"
	default:
		return "unavailable"
	}
}

func (ev *evaluation) result(st State) Result {
	res := Result{
		Identity:  Anonymous(),
		State:     st,
		Refreshed: ev.refreshed,
		Cleared:   ev.cleared,
		Err:       ev.err,
	}
	if st == StateAuthenticated {
		res.Identity = authenticated(ev.claims, ev.token)
	}
	return res
}

// report пишет итог в лог запроса и в Observer.
func (g *Gate) report(ctx context.Context, res Result) {
	outcome := res.Outcome()
	g.observer.ObserveGate(outcome)

	lg := log.From(ctx)
	attrs := []slog.Attr{
		slog.String("outcome", outcome),
		slog.String("state", res.State.String()),
	}
	if c, ok := res.Identity.Claims(); ok {
		attrs = append(attrs, slog.String("sub", c.Subject))
	}
	if tok, ok := res.Identity.AccessToken(); ok {
		attrs = append(attrs, slog.String("token", redact.Token(tok)))
	}
	if res.Err != nil {
		attrs = append(attrs, slog.String("reason", res.Err.Error()))
	}

	lvl := slog.LevelDebug
	msg := "session_resolved"
	switch {
	case errors.Is(res.Err, ErrInternal):
		lvl, msg = slog.LevelError, "session_internal_error"
	case errors.Is(res.Err, ErrRefreshUnavailable):
		lvl, msg = slog.LevelError, "session_refresh_failed"
	case errors.Is(res.Err, ErrRefreshRejected):
		lvl, msg = slog.LevelWarn, "session_refresh_failed"
	case res.State == StateReject:
		msg = "session_rejected"
	case res.Refreshed:
		lvl, msg = slog.LevelInfo, "session_refreshed"
	}
	lg.LogAttrs(ctx, lvl, msg, attrs...)
}
