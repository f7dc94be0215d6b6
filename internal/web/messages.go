package web

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/lenslove/academy/internal/curriculum"
	"github.com/lenslove/academy/internal/session"
)

// Inbound message types.
const (
	msgSelect = "select"
	msgCheck  = "check"
	msgUpload = "upload"
)

// Outbound message types.
const (
	msgSidebar  = "sidebar"
	msgLesson   = "lesson"
	msgResult   = "result"
	msgUploaded = "upload"
	msgError    = "error"
)

const (
	tryAgain    = "Try again!"
	celebrate   = "Correct!"
	photoThanks = "Photo received. Nice work on the quest!"
)

// inbound is any message a client sends. Fields unused by a type are ignored.
type inbound struct {
	Type     string `json:"type"`
	Module   string `json:"module"`
	Lesson   string `json:"lesson"`
	Answer   string `json:"answer,omitempty"`
	Filename string `json:"filename,omitempty"`
	Data     string `json:"data,omitempty"` // base64
}

func (m inbound) lessonID() curriculum.LessonID {
	return curriculum.LessonID{Module: m.Module, Lesson: m.Lesson}
}

type selection struct {
	Module string `json:"module"`
	Lesson string `json:"lesson"`
}

type sidebarMsg struct {
	Type     string         `json:"type"`
	Modules  []moduleEntry  `json:"modules"`
	Selected selection      `json:"selected"`
	Status   session.Status `json:"status"`
}

type lessonMsg struct {
	Type   string             `json:"type"`
	Lesson session.LessonView `json:"lesson"`
	Status session.Status     `json:"status"`
}

type resultMsg struct {
	Type      string          `json:"type"`
	Module    string          `json:"module"`
	Lesson    string          `json:"lesson"`
	Outcome   session.Outcome `json:"outcome"`
	Correct   bool            `json:"correct"`
	Celebrate bool            `json:"celebrate"`
	Completed bool            `json:"completed"`
	Message   string          `json:"message"`
	Status    session.Status  `json:"status"`
}

type uploadMsg struct {
	Type    string         `json:"type"`
	Upload  session.Upload `json:"upload"`
	Message string         `json:"message"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

const writeTimeout = 5 * time.Second

func send(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
