package gateway

import (
	"net/http"
	"time"

	models "fin-ledger/models_package"
	trhr "fin-ledger/transactions_service/transactions_handler"
)

// AccessTokenCookie names the cookie that carries the bearer token.
const AccessTokenCookie = "access_token"

func (s *Server) health(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if s.storage != nil {
		if err := s.storage.Ping(r.Context()); err != nil {
			s.log.WarnContext(r.Context(), "storage ping failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// register handles POST /register.
func (s *Server) register(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	p, err := readParams(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := p.require("name", "password"); err != nil {
		s.writeErr(w, r, err)
		return
	}

	user, err := s.auth.Register(r.Context(), p.name(), p.password())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Registration successful!",
		"user":    user,
	})
}

// login handles POST /login. The token is returned in the body and set as
// a cookie.
func (s *Server) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	p, err := readParams(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := p.require("name", "password"); err != nil {
		s.writeErr(w, r, err)
		return
	}

	token, err := s.auth.Login(r.Context(), p.name(), p.password())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token.AccessToken,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, token)
}

// logout only drops the cookie; the token stays valid until it expires.
func (s *Server) logout(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// transactionForm handles GET /transaction and returns the sender to
// prefill a transfer with.
func (s *Server) transactionForm(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	sender, err := s.transfers.Sender(r.Context(), bearerToken(r))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"from_user": sender})
}

// createTransaction handles POST /transaction.
func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	token := bearerToken(r)

	p, err := readParams(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	err = p.require("from_user", "to_user", "from_bank_name", "to_bank_name",
		"from_card_number", "to_card_number", "transaction_amount")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	amount, err := p.int64("transaction_amount")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	transaction, err := s.transfers.Transfer(r.Context(), trhr.Request{
		Token:          token,
		FromUser:       p.get("from_user"),
		ToUser:         p.get("to_user"),
		FromBankName:   p.get("from_bank_name"),
		ToBankName:     p.get("to_bank_name"),
		FromCardNumber: p.get("from_card_number"),
		ToCardNumber:   p.get("to_card_number"),
		Amount:         amount,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Transaction created successfully!",
		"transaction": transaction,
	})
}

// listTransactions handles GET /transactions.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	opts, err := historyOptions(r.URL.Query())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	transactions, err := s.transfers.History(r.Context(), bearerToken(r), opts)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}
