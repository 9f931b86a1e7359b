package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/service"
)

// Public serves the application-facing surface: credential login issuing a
// signed JWT, and logout revoking its index record.
type Public struct {
	creds  *service.CredentialStore
	tokens *service.TokenIndex
	signer *service.Signer
	log    *zap.Logger
}

func NewPublic(creds *service.CredentialStore, tokens *service.TokenIndex, signer *service.Signer, log *zap.Logger) *Public {
	return &Public{creds: creds, tokens: tokens, signer: signer, log: log}
}

func (p *Public) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", p.login)
	mux.HandleFunc("POST /api/logout", p.logout)
	mux.HandleFunc("GET /api/session", p.session)
	return mux
}

func (p *Public) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := p.creds.VerifyCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, p.log, err)
		return
	}
	rec, err := p.tokens.Issue(r.Context(), u.UID, 0, nil)
	if err != nil {
		writeError(w, p.log, err)
		return
	}
	signed, err := p.signer.Sign(rec)
	if err != nil {
		writeError(w, p.log, err)
		return
	}
	writeOK(w, map[string]any{
		"token":      signed,
		"jti":        rec.JTI,
		"uid":        u.UID,
		"expires_at": rec.ExpiresAt.Format(time.RFC3339),
	})
}

func (p *Public) logout(w http.ResponseWriter, r *http.Request) {
	jti, _, ok := p.bearer(w, r)
	if !ok {
		return
	}
	if err := p.tokens.Revoke(r.Context(), jti); err != nil {
		writeError(w, p.log, err)
		return
	}
	writeOK(w, nil)
}

// session validates the presented JWT against the index: a well-signed token
// whose record was revoked is no longer a session.
func (p *Public) session(w http.ResponseWriter, r *http.Request) {
	jti, uid, ok := p.bearer(w, r)
	if !ok {
		return
	}
	rec, expired, err := p.tokens.Lookup(r.Context(), jti)
	if err != nil {
		writeError(w, p.log, err)
		return
	}
	if expired {
		writeError(w, p.log, errs.ErrInvalidCredentials)
		return
	}
	writeOK(w, map[string]any{
		"jti":        rec.JTI,
		"uid":        uid,
		"expires_at": rec.ExpiresAt.Format(time.RFC3339),
	})
}

func (p *Public) bearer(w http.ResponseWriter, r *http.Request) (jti string, uid int64, ok bool) {
	raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		writeError(w, p.log, errs.ErrInvalidCredentials)
		return "", 0, false
	}
	jti, uid, err := p.signer.Parse(raw)
	if err != nil {
		writeError(w, p.log, err)
		return "", 0, false
	}
	return jti, uid, true
}
