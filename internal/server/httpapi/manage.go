package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/authd/internal/config"
	pkgcrypto "github.com/and161185/authd/internal/crypto"
	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/health"
	"github.com/and161185/authd/internal/model"
	"github.com/and161185/authd/internal/service"
)

// Board is the switchboard surface the management API needs.
type Board interface {
	List() ([]model.ConnectionDescriptor, int64)
	Add(model.ConnectionDescriptor) (model.ConnectionDescriptor, error)
	Remove(id int64) error
	Switch(ctx context.Context, id int64) error
}

// Manage serves the operator surface: its own login plus user, token,
// database and status administration. Everything under /manage/api requires
// a session obtained from /manage/login.
type Manage struct {
	creds    *service.CredentialStore
	tokens   *service.TokenIndex
	board    Board
	registry *health.Registry
	cfg      *config.Resolved
	log      *zap.Logger

	adminUser string
	adminPass string
	sessions  sessionStore
}

func NewManage(
	creds *service.CredentialStore,
	tokens *service.TokenIndex,
	board Board,
	registry *health.Registry,
	cfg *config.Resolved,
	log *zap.Logger,
) *Manage {
	return &Manage{
		creds:     creds,
		tokens:    tokens,
		board:     board,
		registry:  registry,
		cfg:       cfg,
		log:       log,
		adminUser: cfg.String(config.KeyManageUsername),
		adminPass: cfg.String(config.KeyManagePassword),
		sessions:  sessionStore{ttl: 24 * time.Hour, byToken: map[string]time.Time{}},
	}
}

// Handler builds the management mux.
func (m *Manage) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /manage/login", m.login)

	mux.Handle("GET /manage/api/users", m.auth(m.listUsers))
	mux.Handle("POST /manage/api/users", m.auth(m.createUser))
	mux.Handle("DELETE /manage/api/users/{uid}", m.auth(m.deleteUser))
	mux.Handle("DELETE /manage/api/users/{uid}/tokens", m.auth(m.revokeAll))

	mux.Handle("POST /manage/api/tokens/issue", m.auth(m.issueToken))
	mux.Handle("GET /manage/api/tokens/{jti}", m.auth(m.lookupToken))
	mux.Handle("DELETE /manage/api/tokens/{jti}", m.auth(m.revokeToken))

	mux.Handle("GET /manage/api/databases", m.auth(m.listDatabases))
	mux.Handle("POST /manage/api/databases", m.auth(m.addDatabase))
	mux.Handle("DELETE /manage/api/databases/{id}", m.auth(m.removeDatabase))
	mux.Handle("POST /manage/api/databases/{id}/switch", m.auth(m.switchDatabase))

	mux.Handle("GET /manage/api/server_status", m.auth(m.serverStatus))
	mux.Handle("GET /manage/api/server_status/{process}", m.auth(m.processStatus))
	mux.Handle("GET /manage/api/config", m.auth(m.configView))
	return mux
}

// sessionStore holds opaque management session tokens. Sessions are
// in-memory only; a restart logs every operator out.
type sessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	byToken map[string]time.Time
}

func (s *sessionStore) issue(now time.Time) (string, error) {
	raw, err := pkgcrypto.RandBytes(32)
	if err != nil {
		return "", err
	}
	tok := hex.EncodeToString(raw)
	s.mu.Lock()
	s.byToken[tok] = now.Add(s.ttl)
	s.mu.Unlock()
	return tok, nil
}

func (s *sessionStore) valid(tok string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.byToken[tok]
	if !ok {
		return false
	}
	if now.After(exp) {
		delete(s.byToken, tok)
		return false
	}
	return true
}

func (m *Manage) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(m.adminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(m.adminPass)) == 1
	if !userOK || !passOK {
		writeError(w, m.log, errs.ErrInvalidCredentials)
		return
	}
	tok, err := m.sessions.issue(time.Now())
	if err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, map[string]any{"token": tok})
}

func (m *Manage) auth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !m.sessions.valid(tok, time.Now()) {
			writeError(w, m.log, errs.ErrInvalidCredentials)
			return
		}
		next(w, r)
	})
}

type userView struct {
	UID      int64    `json:"uid"`
	Username string   `json:"username"`
	TokenIDs []string `json:"token_ids"`
}

func (m *Manage) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := m.creds.ListUsers(r.Context())
	if err != nil {
		writeError(w, m.log, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		ids := u.TokenIDs
		if ids == nil {
			ids = []string{}
		}
		out = append(out, userView{UID: u.UID, Username: u.Username, TokenIDs: ids})
	}
	writeOK(w, map[string]any{"users": out})
}

func (m *Manage) createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := m.creds.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, userView{UID: u.UID, Username: u.Username, TokenIDs: []string{}})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Envelope{Code: CodeValidation, Message: "malformed " + name})
		return 0, false
	}
	return id, true
}

func (m *Manage) deleteUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathID(w, r, "uid")
	if !ok {
		return
	}
	if err := m.creds.DeleteUser(r.Context(), uid); err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, nil)
}

func (m *Manage) revokeAll(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathID(w, r, "uid")
	if !ok {
		return
	}
	if err := m.tokens.RevokeAll(r.Context(), uid); err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, nil)
}

type tokenView struct {
	JTI       string         `json:"jti"`
	UID       int64          `json:"uid"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	Claims    map[string]any `json:"claims,omitempty"`
	Expired   bool           `json:"expired"`
}

func (m *Manage) issueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID        int64          `json:"uid"`
		TTLSeconds int64          `json:"ttl_seconds"`
		Claims     map[string]any `json:"claims"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	tok, err := m.tokens.Issue(r.Context(), req.UID, time.Duration(req.TTLSeconds)*time.Second, req.Claims)
	if err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, tokenView{
		JTI: tok.JTI, UID: tok.UID,
		IssuedAt: tok.IssuedAt, ExpiresAt: tok.ExpiresAt,
		Claims: tok.Claims,
	})
}

func (m *Manage) lookupToken(w http.ResponseWriter, r *http.Request) {
	tok, expired, err := m.tokens.Lookup(r.Context(), r.PathValue("jti"))
	if err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, tokenView{
		JTI: tok.JTI, UID: tok.UID,
		IssuedAt: tok.IssuedAt, ExpiresAt: tok.ExpiresAt,
		Claims: tok.Claims, Expired: expired,
	})
}

func (m *Manage) revokeToken(w http.ResponseWriter, r *http.Request) {
	if err := m.tokens.Revoke(r.Context(), r.PathValue("jti")); err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, nil)
}

type databaseView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Path        string `json:"path,omitempty"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Database    string `json:"database,omitempty"`
	Username    string `json:"username,omitempty"`
	IsDefault   bool   `json:"is_default"`
	IsRemovable bool   `json:"is_removable"`
}

func toDatabaseView(d model.ConnectionDescriptor) databaseView {
	return databaseView{
		ID: d.ID, Name: d.Name, Kind: string(d.Kind),
		Path: d.Path, Host: d.Host, Port: d.Port,
		Database: d.Database, Username: d.Username,
		IsDefault: d.IsDefault, IsRemovable: d.IsRemovable,
	}
}

func (m *Manage) listDatabases(w http.ResponseWriter, _ *http.Request) {
	descs, active := m.board.List()
	out := make([]databaseView, 0, len(descs))
	for _, d := range descs {
		out = append(out, toDatabaseView(d))
	}
	writeOK(w, map[string]any{"databases": out, "active_id": active})
}

func (m *Manage) addDatabase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Kind     string `json:"kind"`
		Path     string `json:"path"`
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Database string `json:"database"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := m.board.Add(model.ConnectionDescriptor{
		Name:     req.Name,
		Kind:     model.ConnKind(req.Kind),
		Path:     req.Path,
		Host:     req.Host,
		Port:     req.Port,
		Database: req.Database,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, toDatabaseView(d))
}

func (m *Manage) removeDatabase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := m.board.Remove(id); err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, nil)
}

func (m *Manage) switchDatabase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := m.board.Switch(r.Context(), id); err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, map[string]any{"active_id": id})
}

func (m *Manage) serverStatus(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, m.registry.Snapshot())
}

func (m *Manage) processStatus(w http.ResponseWriter, r *http.Request) {
	st, err := m.registry.Query(r.PathValue("process"))
	if err != nil {
		writeError(w, m.log, err)
		return
	}
	writeOK(w, st)
}

func (m *Manage) configView(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, redactedConfig(m.cfg))
}

// secretKeys never leave the process in clear text through any surface.
var secretKeys = map[string]struct{}{
	config.KeyDatabasePassword: {},
	config.KeyJWTSecretKey:     {},
	config.KeyManagePassword:   {},
}

func redactedConfig(cfg *config.Resolved) map[string]any {
	snap := cfg.Snapshot()
	for key := range secretKeys {
		if v, ok := snap[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				snap[key] = "*****"
			}
		}
	}
	return snap
}
