package store

import (
	"testing"

	"github.com/codeloft/codeloft/pkg/models"
)

func newTestWorkbench(t *testing.T) (*WorkbenchStore, *fakeRuntime) {
	t.Helper()
	rt := newFakeRuntime()
	files := NewFilesStore(rt, NewDeletionLedger(nil), FilesStoreOptions{})
	w := NewWorkbenchStore(rt, files)
	t.Cleanup(w.Close)
	return w, rt
}

func artifactCallback(messageID string) models.ArtifactCallback {
	return models.ArtifactCallback{MessageID: messageID, ID: "art-" + messageID, Title: "Build app"}
}

func fileAction(messageID, actionID, path, content string) models.ActionCallback {
	return models.ActionCallback{
		MessageID: messageID,
		ActionID:  actionID,
		Action:    models.Action{Type: models.ActionTypeFile, FilePath: path, Content: content},
	}
}

func shellAction(messageID, actionID, command string) models.ActionCallback {
	return models.ActionCallback{
		MessageID: messageID,
		ActionID:  actionID,
		Action:    models.Action{Type: models.ActionTypeShell, Content: command},
	}
}

func TestAddArtifactFirstRegistrationWins(t *testing.T) {
	w, _ := newTestWorkbench(t)

	w.AddArtifact(models.ArtifactCallback{MessageID: "m1", ID: "a1", Title: "first"})
	w.AddArtifact(models.ArtifactCallback{MessageID: "m1", ID: "a2", Title: "second"})

	artifact := w.Artifact("m1")
	if artifact == nil {
		t.Fatal("artifact not registered")
	}
	if artifact.ID != "a1" || artifact.Title != "first" {
		t.Errorf("repeated registration overwrote the artifact: %+v", artifact)
	}
}

func TestFirstArtifactFollowsRegistrationOrder(t *testing.T) {
	w, _ := newTestWorkbench(t)

	if w.FirstArtifact() != nil {
		t.Error("FirstArtifact on empty store should be nil")
	}

	w.AddArtifact(models.ArtifactCallback{MessageID: "m1", ID: "a1"})
	w.AddArtifact(models.ArtifactCallback{MessageID: "m2", ID: "a2"})

	if first := w.FirstArtifact(); first == nil || first.ID != "a1" {
		t.Errorf("FirstArtifact = %+v, want a1", first)
	}
}

func TestUpdateArtifactMergesAndIgnoresUnknown(t *testing.T) {
	w, _ := newTestWorkbench(t)
	w.AddArtifact(artifactCallback("m1"))

	title := "renamed"
	closed := true
	w.UpdateArtifact("m1", models.ArtifactUpdate{Title: &title, Closed: &closed})

	artifact := w.Artifact("m1")
	if artifact.Title != "renamed" || !artifact.Closed {
		t.Errorf("update not merged: %+v", artifact)
	}

	// Partial update leaves the other field alone.
	open := false
	w.UpdateArtifact("m1", models.ArtifactUpdate{Closed: &open})
	if artifact := w.Artifact("m1"); artifact.Title != "renamed" || artifact.Closed {
		t.Errorf("partial update touched unrelated field: %+v", artifact)
	}

	// Unknown artifact is a silent no-op.
	w.UpdateArtifact("nope", models.ArtifactUpdate{Title: &title})
}

func TestRunActionAppliesFileAndShellActions(t *testing.T) {
	w, rt := newTestWorkbench(t)
	w.AddArtifact(artifactCallback("m1"))

	w.AddAction(fileAction("m1", "a1", "/home/project/src/index.js", "console.log(1)\n"))
	w.RunAction(models.RunActionRequest{ActionCallback: fileAction("m1", "a1", "/home/project/src/index.js", "console.log(1)\n")})

	w.AddAction(shellAction("m1", "a2", "npm install"))
	w.RunAction(models.RunActionRequest{ActionCallback: shellAction("m1", "a2", "npm install")})
	w.WaitIdle()

	if got := rt.writtenContent("src/index.js"); string(got) != "console.log(1)\n" {
		t.Errorf("file action content = %q", got)
	}
	if rt.execCount() != 1 {
		t.Errorf("exec count = %d, want 1", rt.execCount())
	}

	actions := w.Artifact("m1").Runner.Actions()
	if len(actions) != 2 {
		t.Fatalf("tracked %d actions, want 2", len(actions))
	}
	for _, a := range actions {
		if a.Status != models.ActionStatusComplete || !a.Executed {
			t.Errorf("action state = %+v, want executed and complete", a)
		}
	}
}

func TestRunActionExecutesExactlyOnce(t *testing.T) {
	w, rt := newTestWorkbench(t)
	w.AddArtifact(artifactCallback("m1"))

	cb := shellAction("m1", "a1", "npm run build")
	w.AddAction(cb)
	// Submitting the same action again and re-running it must not apply
	// twice.
	w.AddAction(cb)
	w.RunAction(models.RunActionRequest{ActionCallback: cb})
	w.RunAction(models.RunActionRequest{ActionCallback: cb})
	w.WaitIdle()

	if rt.execCount() != 1 {
		t.Errorf("exec count = %d, want exactly 1", rt.execCount())
	}
	if a := w.Artifact("m1").Runner.Action("a1"); a == nil || !a.Executed {
		t.Errorf("action state = %+v, want executed", a)
	}
}

func TestRunActionSetsCodeViewForFileActions(t *testing.T) {
	w, _ := newTestWorkbench(t)
	w.AddArtifact(artifactCallback("m1"))
	w.SetCurrentView(ViewDiff)

	cb := fileAction("m1", "a1", "/home/project/a.txt", "x")
	w.AddAction(cb)
	w.RunAction(models.RunActionRequest{ActionCallback: cb})
	w.WaitIdle()

	if got := w.CurrentView(); got != ViewCode {
		t.Errorf("current view = %q, want %q after a file action", got, ViewCode)
	}
}

func TestStreamingBurstLandsFinalContent(t *testing.T) {
	w, rt := newTestWorkbench(t)
	w.AddArtifact(artifactCallback("m1"))

	path := "/home/project/app.js"
	w.AddAction(fileAction("m1", "a1", path, ""))
	// Streaming runs bypass the queue, so make sure the registration has
	// landed first.
	w.WaitIdle()

	// A burst of partial updates followed by the closing non-streaming run.
	for _, partial := range []string{"con", "console.l", "console.log(42)"} {
		w.RunAction(models.RunActionRequest{
			ActionCallback: fileAction("m1", "a1", path, partial),
			Streaming:      true,
		})
	}
	w.RunAction(models.RunActionRequest{ActionCallback: fileAction("m1", "a1", path, "console.log(42)\n")})
	w.WaitIdle()

	if got := rt.writtenContent("app.js"); string(got) != "console.log(42)\n" {
		t.Errorf("final content = %q, want the closing run's content", got)
	}
	if a := w.Artifact("m1").Runner.Action("a1"); a == nil || !a.Executed || a.Status != models.ActionStatusComplete {
		t.Errorf("action state = %+v, want executed and complete", a)
	}
}

func TestStreamingShellActionExecutesOnce(t *testing.T) {
	w, rt := newTestWorkbench(t)
	w.AddArtifact(artifactCallback("m1"))

	cb := shellAction("m1", "a1", "npm run dev")
	w.AddAction(cb)
	w.WaitIdle()

	// Streaming keeps only file actions open; a shell command re-sampled
	// mid-burst must not run a second time.
	w.RunAction(models.RunActionRequest{ActionCallback: cb, Streaming: true})
	w.WaitIdle()
	w.RunAction(models.RunActionRequest{ActionCallback: cb, Streaming: true})
	w.WaitIdle()

	if rt.execCount() != 1 {
		t.Errorf("exec count = %d, want exactly 1 for a streamed shell burst", rt.execCount())
	}
	a := w.Artifact("m1").Runner.Action("a1")
	if a == nil || !a.Executed || a.Status != models.ActionStatusComplete {
		t.Errorf("action state = %+v, want executed and complete after first streamed run", a)
	}
}

func TestRunActionForUnknownArtifactKeepsQueueAlive(t *testing.T) {
	w, rt := newTestWorkbench(t)
	w.AddArtifact(artifactCallback("m1"))

	// Misaddressed run: artifact was never registered.
	w.RunAction(models.RunActionRequest{ActionCallback: shellAction("ghost", "a1", "true")})

	// The queue must still process well-formed submissions afterwards.
	cb := shellAction("m1", "a2", "npm test")
	w.AddAction(cb)
	w.RunAction(models.RunActionRequest{ActionCallback: cb})
	w.WaitIdle()

	if rt.execCount() != 1 {
		t.Errorf("exec count = %d, want 1", rt.execCount())
	}
}

func TestCloseAbortsPendingActions(t *testing.T) {
	rt := newFakeRuntime()
	files := NewFilesStore(rt, NewDeletionLedger(nil), FilesStoreOptions{})
	w := NewWorkbenchStore(rt, files)
	w.AddArtifact(artifactCallback("m1"))
	w.AddAction(shellAction("m1", "a1", "sleep 1"))
	w.WaitIdle()

	w.Close()

	if a := w.Artifact("m1").Runner.Action("a1"); a == nil || a.Status != models.ActionStatusAborted {
		t.Errorf("pending action after Close = %+v, want aborted", a)
	}
}
