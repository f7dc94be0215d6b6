package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/lenslove/academy/internal/curriculum"
	"github.com/lenslove/academy/internal/progress"
	"github.com/lenslove/academy/internal/session"
)

// readLimitSlack covers the JSON envelope around a base64 photo.
const readLimitSlack = 64 << 10

var (
	// errFatal marks a failure that ends the session.
	errFatal = errors.New("session cannot continue")
	// errSessionOpen rejects a connection while another session is live.
	errSessionOpen = errors.New("a session is already open in another window")
)

// handleSession runs one interactive session for the lifetime of a websocket.
// Messages are handled strictly one at a time.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.acquire() {
		slog.Warn("rejecting second session", "user_id", s.cfg.UserID)
		writeJSON(w, http.StatusConflict, map[string]string{"error": errSessionOpen.Error()})
		return
	}
	defer s.release()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	sess, err := session.New(session.Config{
		UserID:         s.cfg.UserID,
		Store:          s.cfg.Store,
		Registry:       s.cfg.Registry,
		Events:         s.cfg.Events,
		MaxUploadBytes: s.cfg.MaxUploadBytes,
	})
	if err != nil {
		slog.Error("failed to start session", "error", err)
		conn.Close(websocket.StatusInternalError, "session unavailable")
		return
	}
	defer sess.Close()

	maxUpload := s.cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	conn.SetReadLimit(int64(base64.StdEncoding.EncodedLen(maxUpload)) + readLimitSlack)

	ctx := r.Context()
	slog.Info("session connected", "session_id", sess.ID())

	if err := s.reply(ctx, conn, sess, inbound{Type: "hello"}); err != nil {
		s.endSession(conn, sess, err)
		return
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				slog.Info("session disconnected", "session_id", sess.ID())
			default:
				slog.Debug("session read ended", "session_id", sess.ID(), "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := send(ctx, conn, errorMsg{Type: msgError, Message: "malformed message"}); err != nil {
				return
			}
			continue
		}

		if err := s.reply(ctx, conn, sess, msg); err != nil {
			s.endSession(conn, sess, err)
			return
		}
	}
}

// reply handles one inbound message. A returned error ends the session;
// recoverable failures are sent to the client as error messages instead.
func (s *Server) reply(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg inbound) error {
	var out []any
	var err error

	switch msg.Type {
	case "hello":
		out, err = s.onHello(ctx, sess)
	case msgSelect:
		out, err = s.onSelect(ctx, sess, msg)
	case msgCheck:
		out, err = s.onCheck(ctx, sess, msg)
	case msgUpload:
		out, err = s.onUpload(sess, msg)
	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}

	if err != nil {
		if fatal(err) {
			return err
		}
		if errors.Is(err, curriculum.ErrNotFound) {
			slog.Error("selection outside the curriculum", "session_id", sess.ID(), "error", err)
		}
		out = []any{errorMsg{Type: msgError, Message: err.Error()}}
	}

	for _, m := range out {
		if err := send(ctx, conn, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) onHello(ctx context.Context, sess *session.Session) ([]any, error) {
	status, err := sess.Status(ctx)
	if err != nil {
		return nil, err
	}
	modules, err := s.modules()
	if err != nil {
		return nil, err
	}
	def := s.cfg.Registry.Default()
	view, err := sess.View(ctx, def)
	if err != nil {
		return nil, err
	}
	return []any{
		sidebarMsg{
			Type:     msgSidebar,
			Modules:  modules,
			Selected: selection{Module: def.Module, Lesson: def.Lesson},
			Status:   status,
		},
		lessonMsg{Type: msgLesson, Lesson: view, Status: status},
	}, nil
}

func (s *Server) onSelect(ctx context.Context, sess *session.Session, msg inbound) ([]any, error) {
	id := msg.lessonID()
	if id.Lesson == "" {
		lessons, err := s.cfg.Registry.Lessons(id.Module)
		if err != nil {
			return nil, err
		}
		id.Lesson = lessons[0]
	}

	view, err := sess.View(ctx, id)
	if err != nil {
		return nil, err
	}
	status, err := sess.Status(ctx)
	if err != nil {
		return nil, err
	}
	return []any{lessonMsg{Type: msgLesson, Lesson: view, Status: status}}, nil
}

func (s *Server) onCheck(ctx context.Context, sess *session.Session, msg inbound) ([]any, error) {
	res, err := sess.SubmitAnswer(ctx, msg.lessonID(), msg.Answer)
	if err != nil {
		return nil, err
	}

	text := tryAgain
	if res.Outcome.Correct() {
		text = celebrate
	}
	return []any{resultMsg{
		Type:      msgResult,
		Module:    msg.Module,
		Lesson:    msg.Lesson,
		Outcome:   res.Outcome,
		Correct:   res.Outcome.Correct(),
		Celebrate: res.Outcome.Correct(),
		Completed: res.Record.Completed(msg.Lesson),
		Message:   text,
		Status:    session.StatusOf(res.Record),
	}}, nil
}

func (s *Server) onUpload(sess *session.Session, msg inbound) ([]any, error) {
	photo, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("photo data is not valid base64")
	}
	up, err := sess.AcceptUpload(msg.lessonID(), msg.Filename, len(photo))
	if err != nil {
		return nil, err
	}
	return []any{uploadMsg{Type: msgUploaded, Upload: up, Message: photoThanks}}, nil
}

// endSession reports a fatal failure and closes the connection. A new
// connection starts a new session that reloads progress from the store.
func (s *Server) endSession(conn *websocket.Conn, sess *session.Session, err error) {
	if !fatal(err) {
		return
	}
	slog.Error("session aborted", "session_id", sess.ID(), "error", err)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_ = send(ctx, conn, errorMsg{Type: msgError, Message: err.Error(), Fatal: true})
	conn.Close(websocket.StatusInternalError, errFatal.Error())
}

func fatal(err error) bool {
	return errors.Is(err, progress.ErrStoreUnavailable) || errors.Is(err, session.ErrClosed)
}
