package api

import (
	"log/slog"
	"net/http"

	"github.com/twilio/twilio-go/twiml"
)

// smsHandler is the Twilio inbound SMS webhook. The reply rides back on the
// webhook response as TwiML, so no outbound API call is needed.
func (s *Server) smsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.smsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.smsHandler: failed to parse form", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	slog.Debug("Server.smsHandler: inbound SMS", "from", from, "length", len(body))

	reply, err := s.smsFlow.HandleInbound(r.Context(), from, body)
	if err != nil {
		slog.Error("Server.smsHandler: intake failed", "error", err, "from", from)
		// An empty TwiML document keeps Twilio from surfacing an error to
		// the texter.
		s.renderMessages(w, nil)
		return
	}

	msg := &twiml.MessagingMessage{}
	msg.InnerElements = []twiml.Element{&twiml.MessagingBody{Message: reply}}
	s.renderMessages(w, []twiml.Element{msg})
}

// voiceHandler answers a new inbound call with the greeting and a speech
// gather pointed at the turn endpoint.
func (s *Server) voiceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.voiceHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.voiceHandler: failed to parse form", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	callSID := r.PostFormValue("CallSid")
	slog.Info("Server.voiceHandler: call opened", "callSID", callSID)

	turn := s.voiceFlow.Greet(callSID)
	s.renderTurn(w, turn.Prompt, turn.Done)
}

// voiceTurnHandler consumes one speech result and speaks the next prompt.
func (s *Server) voiceTurnHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.voiceTurnHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.voiceTurnHandler: failed to parse form", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	callSID := r.PostFormValue("CallSid")
	speech := r.PostFormValue("SpeechResult")
	slog.Debug("Server.voiceTurnHandler: turn received", "callSID", callSID, "length", len(speech))

	turn := s.voiceFlow.Advance(r.Context(), callSID, speech)
	s.renderTurn(w, turn.Prompt, turn.Done)
}

// renderTurn renders one conversational step as TwiML: a closing say+hangup
// when the conversation is over, otherwise a speech gather that re-enters the
// turn endpoint. A silent caller is redirected back so the prompt repeats.
func (s *Server) renderTurn(w http.ResponseWriter, prompt string, done bool) {
	say := &twiml.VoiceSay{Message: prompt}

	var verbs []twiml.Element
	if done {
		verbs = []twiml.Element{say, &twiml.VoiceHangup{}}
	} else {
		gather := &twiml.VoiceGather{
			Input:         "speech",
			Action:        "/voice/turn",
			Method:        http.MethodPost,
			SpeechTimeout: "auto",
		}
		gather.InnerElements = []twiml.Element{say}
		verbs = []twiml.Element{gather, &twiml.VoiceRedirect{Url: "/voice/turn", Method: http.MethodPost}}
	}

	doc, err := twiml.Voice(verbs)
	if err != nil {
		slog.Error("Server.renderTurn: failed to render TwiML", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeTwiMLResponse(w, doc)
}

// renderMessages renders a messaging TwiML document.
func (s *Server) renderMessages(w http.ResponseWriter, verbs []twiml.Element) {
	doc, err := twiml.Messages(verbs)
	if err != nil {
		slog.Error("Server.renderMessages: failed to render TwiML", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeTwiMLResponse(w, doc)
}
