package hilink

import (
	"bytes"
	"encoding/xml"
	"io"
)

type sessionInfo struct {
	Session string `xml:"SesInfo"`
	Token   string `xml:"TokInfo"`
}

type loginRequest struct {
	XMLName      xml.Name `xml:"request"`
	Username     string   `xml:"Username"`
	Password     string   `xml:"Password"`
	PasswordType int      `xml:"password_type"`
}

type logoutRequest struct {
	XMLName xml.Name `xml:"request"`
	Logout  int      `xml:"Logout"`
}

type dataSwitchRequest struct {
	XMLName    xml.Name `xml:"request"`
	DataSwitch int      `xml:"dataswitch"`
}

// netMode is the body of /api/net/net-mode in both directions.
type netMode struct {
	NetworkMode string `xml:"NetworkMode"`
	NetworkBand string `xml:"NetworkBand"`
	LTEBand     string `xml:"LTEBand"`
}

type netModeRequest struct {
	XMLName xml.Name `xml:"request"`
	netMode
}

// apiError is the <error> document the router returns instead of <response>.
type apiError struct {
	Code    int    `xml:"code"`
	Message string `xml:"message"`
}

// parseError reports whether body is an <error> document.
func parseError(body []byte) (apiError, bool) {
	var apiErr apiError
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return apiErr, false
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "error" {
			return apiErr, false
		}
		if err := dec.DecodeElement(&apiErr, &start); err != nil {
			return apiErr, false
		}
		return apiErr, true
	}
}

// IndentXML re-encodes an XML document with two-space indentation and drops
// whitespace-only text, for human inspection of telemetry dumps.
func IndentXML(raw []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) == 0 {
				continue
			}
		case xml.ProcInst:
			if t.Target == "xml" {
				continue
			}
		}
		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
