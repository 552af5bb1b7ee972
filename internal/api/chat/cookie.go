package chat

import "net/http"

const sessionCookie = "session_id"

func (h *Handler) readSessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) writeSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.sessionCfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
