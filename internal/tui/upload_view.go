package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sableworks/redline/internal/pipeline"
	"github.com/sableworks/redline/internal/session"
)

// uploadView is the workflow entry point: pick a contract file, push it to
// the server, and hand the issued session to the analysis screen.
type uploadView struct {
	app   *App
	epoch string

	path      textinput.Model
	uploading bool
	errMsg    string
}

type uploadFinishedMsg struct {
	epoch    string
	filename string
	result   pipeline.UploadResult
	err      error
}

func newUploadView(app *App) *uploadView {
	path := textinput.New()
	path.Placeholder = "path/to/contract.pdf"
	path.CharLimit = 512
	path.Focus()
	return &uploadView{
		app:   app,
		epoch: newEpoch(),
		path:  path,
	}
}

func (v *uploadView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case uploadFinishedMsg:
		if m.epoch != v.epoch {
			return nil
		}
		return v.handleUploadFinished(m)
	case tea.KeyMsg:
		switch m.String() {
		case "enter":
			return v.submit()
		case "ctrl+l":
			v.app.logout()
			return nil
		}
	}
	if v.uploading {
		return nil
	}
	var cmd tea.Cmd
	v.path, cmd = v.path.Update(msg)
	return cmd
}

// submit validates the file display-side before any network call. The
// server stays authoritative; its rejections surface as errors.
func (v *uploadView) submit() tea.Cmd {
	if v.uploading {
		return nil
	}
	path := strings.TrimSpace(v.path.Value())
	if path == "" {
		v.errMsg = "Please select a file"
		return nil
	}
	filename := filepath.Base(path)
	if !v.app.config.AcceptsFormat(filename) {
		v.errMsg = fmt.Sprintf("Unsupported format %s · accepted: %s",
			filepath.Ext(filename), strings.Join(v.app.config.AcceptedFormats(), " "))
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		v.errMsg = fmt.Sprintf("Cannot read %s: %v", path, err)
		return nil
	}
	if info.IsDir() {
		v.errMsg = fmt.Sprintf("%s is a directory", path)
		return nil
	}
	if info.Size() > v.app.config.MaxUploadBytes() {
		v.errMsg = fmt.Sprintf("%s is larger than the %d MB limit",
			filename, v.app.config.MaxUploadBytes()>>20)
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		v.errMsg = fmt.Sprintf("Cannot read %s: %v", path, err)
		return nil
	}

	v.uploading = true
	v.errMsg = ""
	v.app.setStatus(fmt.Sprintf("Uploading %s...", filename))
	gw := v.app.gateway
	epoch := v.epoch
	return func() tea.Msg {
		result, err := gw.SubmitDocument(context.Background(), filename, content)
		return uploadFinishedMsg{epoch: epoch, filename: filename, result: result, err: err}
	}
}

func (v *uploadView) handleUploadFinished(msg uploadFinishedMsg) tea.Cmd {
	v.uploading = false
	if msg.err != nil {
		if isUnauthorized(msg.err) {
			v.app.forceLogin()
			return nil
		}
		v.errMsg = pipeline.UserMessage(msg.err, "Upload failed")
		v.app.logbook.Warn("Upload failed: %v", msg.err)
		return nil
	}
	sess, err := session.New(msg.result.SessionID, msg.filename)
	if err != nil {
		v.errMsg = pipeline.UserMessage(err, "Upload failed")
		return nil
	}
	v.app.logbook.Info("Uploaded %s · session %s", msg.filename, sess.ID())
	v.app.showAnalysis(sess, msg.result.RiskAssessment)
	return nil
}

func (v *uploadView) View() string {
	name, email := v.app.auth.Identity()
	who := name
	if who == "" {
		who = email
	}
	lines := []string{titleStyle.Render("Upload a contract document")}
	if who != "" {
		lines = append(lines, hintStyle.Render("Signed in as "+who))
	}
	lines = append(lines,
		"",
		"File: "+v.path.View(),
		"",
		hintStyle.Render(fmt.Sprintf("Supported formats: %s · max %d MB",
			strings.Join(v.app.config.AcceptedFormats(), " "), v.app.config.MaxUploadBytes()>>20)),
	)
	if v.uploading {
		lines = append(lines, "", busyStyle.Render("Uploading..."))
	} else {
		lines = append(lines, "", hintStyle.Render("enter=upload & analyze  ctrl+l=log out  ctrl+c=quit"))
	}
	if v.errMsg != "" {
		lines = append(lines, "", errorStyle.Render("⚠ "+v.errMsg))
	}
	return strings.Join(lines, "\n")
}
