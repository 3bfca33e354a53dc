package routermock

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/radio-control/bandlock/internal/band"
)

const tokenHeader = "__RequestVerificationToken"

// HiLink error codes the emulator produces.
const (
	codeNoRights      = 100003
	codeFormatError   = 100005
	codeWrongPassword = 108006
	codeWrongSession  = 125002
)

// Handler returns the HiLink API handler.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/webserver/SesTokInfo", r.handleSessionToken)
	mux.HandleFunc("/api/user/login", r.handleLogin)
	mux.HandleFunc("/api/user/logout", r.handleLogout)
	mux.HandleFunc("/api/device/signal", r.handleSignal)
	mux.HandleFunc("/api/net/net-mode", r.handleNetMode)
	mux.HandleFunc("/api/dialup/mobile-dataswitch", r.handleDataSwitch)
	return mux
}

func (r *Router) handleSessionToken(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.begin(w, req) {
		return
	}

	if r.sessionID == "" {
		r.sessionID = newID()
	}
	token := r.issueToken()
	writeXML(w, fmt.Sprintf("<response><SesInfo>SessionID=%s</SesInfo><TokInfo>%s</TokInfo></response>", r.sessionID, token))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.beginWrite(w, req, false)
	if !ok {
		return
	}

	var body struct {
		Username     string `xml:"Username"`
		Password     string `xml:"Password"`
		PasswordType int    `xml:"password_type"`
	}
	if err := decodeBody(req, &body); err != nil || body.PasswordType != 4 {
		writeError(w, codeFormatError)
		return
	}
	if body.Username != r.cfg.Username || body.Password != encodePassword(r.cfg.Username, r.cfg.Password, token) {
		writeError(w, codeWrongPassword)
		return
	}

	r.loggedIn = true
	r.sessionID = newID()
	http.SetCookie(w, &http.Cookie{Name: "SessionID", Value: r.sessionID, Path: "/"})
	w.Header().Set(tokenHeader+"one", r.issueToken())
	w.Header().Set(tokenHeader+"two", r.issueToken())
	writeOK(w)
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.beginWrite(w, req, true); !ok {
		return
	}

	r.loggedIn = false
	r.tokens = make(map[string]bool)
	writeOK(w)
}

func (r *Router) handleSignal(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.begin(w, req) {
		return
	}

	var b strings.Builder
	b.WriteString("<response><pci>256</pci><sc></sc><cell_id>20867073</cell_id>")
	attached := r.attachedLocked()
	if attached.IsNone() {
		b.WriteString("<rsrq></rsrq><rsrp></rsrp><rssi></rssi><sinr></sinr>")
	} else {
		b.WriteString(signalQuality(attached))
	}
	b.WriteString("<mode>7</mode>")
	if !r.omitBand {
		fmt.Fprintf(&b, "<band>%s</band>", attached.Numeric())
	}
	b.WriteString("<plmn>20801</plmn></response>")
	writeXML(w, b.String())
}

func (r *Router) handleNetMode(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.Method == http.MethodGet {
		if !r.begin(w, req) {
			return
		}
		mask, _ := r.allowed.MaskHex()
		writeXML(w, fmt.Sprintf("<response><NetworkMode>%s</NetworkMode><NetworkBand>%s</NetworkBand><LTEBand>%s</LTEBand></response>",
			r.mode, r.networkBand, mask))
		return
	}

	if _, ok := r.beginWrite(w, req, true); !ok {
		return
	}
	var body struct {
		NetworkMode string `xml:"NetworkMode"`
		NetworkBand string `xml:"NetworkBand"`
		LTEBand     string `xml:"LTEBand"`
	}
	if err := decodeBody(req, &body); err != nil {
		writeError(w, codeFormatError)
		return
	}
	bands, err := band.SetFromMask(body.LTEBand)
	if err != nil || len(bands) == 0 {
		writeError(w, codeFormatError)
		return
	}

	r.mode = body.NetworkMode
	r.networkBand = body.NetworkBand
	if maskNow, _ := r.allowed.MaskHex(); maskNow != strings.ToUpper(body.LTEBand) {
		r.applyBandList(bands)
	}
	writeOK(w)
}

func (r *Router) handleDataSwitch(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.beginWrite(w, req, true); !ok {
		return
	}

	var body struct {
		DataSwitch int `xml:"dataswitch"`
	}
	if err := decodeBody(req, &body); err != nil {
		writeError(w, codeFormatError)
		return
	}
	r.dataOn = body.DataSwitch == 1
	writeOK(w)
}

// begin records the call and applies fault injection. Caller holds r.mu.
func (r *Router) begin(w http.ResponseWriter, req *http.Request) bool {
	r.calls = append(r.calls, req.Method+" "+req.URL.Path)
	if r.faultCode != 0 {
		writeError(w, r.faultCode)
		return false
	}
	return true
}

// beginWrite validates session, token and login for a POST, and hands out
// the next token. Caller holds r.mu.
func (r *Router) beginWrite(w http.ResponseWriter, req *http.Request, needLogin bool) (string, bool) {
	if !r.begin(w, req) {
		return "", false
	}
	if req.Method != http.MethodPost {
		writeError(w, codeFormatError)
		return "", false
	}

	cookie, err := req.Cookie("SessionID")
	if err != nil || r.sessionID == "" || cookie.Value != r.sessionID {
		writeError(w, codeWrongSession)
		return "", false
	}
	token := req.Header.Get(tokenHeader)
	if !r.tokens[token] {
		writeError(w, codeWrongSession)
		return "", false
	}
	delete(r.tokens, token)

	if needLogin && r.cfg.RequireLogin && !r.loggedIn {
		writeError(w, codeNoRights)
		return "", false
	}

	w.Header().Set(tokenHeader, r.issueToken())
	return token, true
}

func (r *Router) issueToken() string {
	token := strings.ReplaceAll(newID(), "-", "")
	r.tokens[token] = true
	return token
}

func newID() string {
	return uuid.New().String()
}

// sinrByBand makes the low bands the clean ones, as at the site the tool was built for.
var sinrByBand = map[band.ID]int{"B28": 18, "B20": 15, "B7": 9, "B3": 6}

func signalQuality(id band.ID) string {
	sinr, ok := sinrByBand[id]
	if !ok {
		sinr = 10
	}
	return fmt.Sprintf("<rsrq>-9dB</rsrq><rsrp>-97dBm</rsrp><rssi>-69dBm</rssi><sinr>%ddB</sinr>", sinr)
}

func decodeBody(req *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(req.Body, 64<<10))
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}

func writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, xml.Header+body)
}

func writeOK(w http.ResponseWriter) {
	writeXML(w, "<response>OK</response>")
}

func writeError(w http.ResponseWriter, code int) {
	writeXML(w, fmt.Sprintf("<error><code>%d</code><message></message></error>", code))
}

func encodePassword(username, password, token string) string {
	inner := base64.StdEncoding.EncodeToString([]byte(sha256Hex(password)))
	return base64.StdEncoding.EncodeToString([]byte(sha256Hex(username + inner + token)))
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
