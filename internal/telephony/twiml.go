package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
)

// Call-flow instruction documents, built with plain xml structs; no
// provider SDK dependency. Only the verbs the dialer needs.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlDial struct {
	XMLName    xml.Name         `xml:"Dial"`
	Conference *twimlConference `xml:"Conference,omitempty"`
}

type twimlConference struct {
	XMLName      xml.Name `xml:"Conference"`
	StartOnEnter string   `xml:"startConferenceOnEnter,attr"`
	EndOnExit    string   `xml:"endConferenceOnExit,attr"`
	Beep         string   `xml:"beep,attr"`
	Name         string   `xml:",chardata"`
}

// RenderConferenceTwiML instructs the network to bridge the call into
// the named conference. The room starts when the first leg enters and
// ends when either leg exits, so neither party is ever left on hold in
// an orphaned bridge.
func RenderConferenceTwiML(conferenceName string) (string, error) {
	if conferenceName == "" {
		return "", errors.New("telephony: conference name required")
	}
	r := twimlResponse{
		Verbs: []any{
			twimlDial{Conference: &twimlConference{
				StartOnEnter: "true",
				EndOnExit:    "true",
				Beep:         "false",
				Name:         conferenceName,
			}},
		},
	}
	return encodeTwiML(r)
}

// RenderErrorTwiML speaks an apology to the connected party and hangs up
// immediately. Used when no conference is resolvable for the call.
func RenderErrorTwiML(message string) (string, error) {
	if message == "" {
		message = "We are sorry, your call cannot be connected at this time. Goodbye."
	}
	r := twimlResponse{
		Verbs: []any{
			twimlSay{Voice: "alice", Text: message},
			twimlHangup{},
		},
	}
	return encodeTwiML(r)
}

func encodeTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
