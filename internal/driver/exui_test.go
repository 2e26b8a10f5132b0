package driver

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/kuitang/et-e2e/internal/domain"
)

const (
	testUser     = "et.caseworker@example.com"
	testPassword = "Passw0rd!"
	sessionName  = "exui-session"
)

// fakeExUI serves just enough of ExUI and the IDAM login page for the driver to run
// every workflow: case details with a Next step dropdown, one event form carrying every
// field the page objects touch, a check-your-answers page and the History tab.
type fakeExUI struct {
	app  *httptest.Server
	idam *httptest.Server

	mu        sync.Mutex
	state     map[string]domain.State
	submitted map[domain.Event]url.Values
	hidden    map[domain.Event]bool // events left out of the dropdown
}

func newFakeExUI(t *testing.T) *fakeExUI {
	t.Helper()
	f := &fakeExUI{
		state:     map[string]domain.State{},
		submitted: map[domain.Event]url.Values{},
		hidden:    map[domain.Event]bool{},
	}

	idam := http.NewServeMux()
	idam.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		f.renderLogin(w, r.URL.Query().Get("redirect_uri"), "")
	})
	idam.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		redirect := r.PostForm.Get("redirect_uri")
		if r.PostForm.Get("username") != testUser || r.PostForm.Get("password") != testPassword {
			f.renderLogin(w, redirect, "Incorrect email or password")
			return
		}
		http.Redirect(w, r, redirect+"?code=ok", http.StatusFound)
	})
	f.idam = httptest.NewServer(idam)
	t.Cleanup(f.idam.Close)

	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		if !signedIn(r) {
			http.Redirect(w, r, f.idam.URL+"/login?redirect_uri="+url.QueryEscape(f.app.URL+"/oauth2/callback"), http.StatusFound)
			return
		}
		http.Redirect(w, r, "/cases", http.StatusFound)
	})
	app.HandleFunc("GET /oauth2/callback", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: sessionName, Value: "ok", Path: "/"})
		http.Redirect(w, r, "/cases", http.StatusFound)
	})
	app.HandleFunc("GET /cases", func(w http.ResponseWriter, r *http.Request) {
		page(w, "Case list", `<h1>Case list</h1>`)
	})
	app.HandleFunc("GET /cases/case-details/{id}", f.caseDetails)
	app.HandleFunc("GET /cases/case-details/{id}/trigger/{event}", f.eventForm)
	app.HandleFunc("GET /cases/case-details/{id}/trigger/{event}/submit", f.checkYourAnswers)
	app.HandleFunc("POST /cases/case-details/{id}/trigger/{event}/submit", f.submitEvent)
	f.app = httptest.NewServer(app)
	t.Cleanup(f.app.Close)
	return f
}

func signedIn(r *http.Request) bool {
	c, err := r.Cookie(sessionName)
	return err == nil && c.Value == "ok"
}

func page(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html><html><head><title>%s</title></head><body>%s</body></html>`, html.EscapeString(title), body)
}

func (f *fakeExUI) renderLogin(w http.ResponseWriter, redirect, problem string) {
	var errBlock string
	if problem != "" {
		errBlock = `<div class="error-summary">` + html.EscapeString(problem) + `</div>`
	}
	page(w, "Sign in", errBlock+`
<form method="post" action="/login">
  <input type="hidden" name="redirect_uri" value="`+html.EscapeString(redirect)+`">
  <input id="username" name="username" type="text">
  <input id="password" name="password" type="password">
  <input type="submit" value="Sign in">
</form>`)
}

func (f *fakeExUI) setState(id string, s domain.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[id] = s
}

func (f *fakeExUI) stateOf(id string) domain.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[id]
}

func (f *fakeExUI) fields(event domain.Event) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted[event]
}

func (f *fakeExUI) hide(event domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden[event] = true
}

func (f *fakeExUI) caseDetails(w http.ResponseWriter, r *http.Request) {
	if !signedIn(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	id := r.PathValue("id")
	state := f.stateOf(id)
	if state == "" {
		http.NotFound(w, r)
		return
	}

	var b strings.Builder
	if ev := r.URL.Query().Get("updated"); ev != "" {
		fmt.Fprintf(&b, `<div class="alert-message">Case #%s has been updated with event: %s</div>`, html.EscapeString(id), html.EscapeString(ev))
	}
	b.WriteString(`<div class="spinner-container" style="display:none"></div>`)
	b.WriteString(`<select id="next-step"><option value="">Select action</option>`)
	f.mu.Lock()
	for _, ev := range domain.Events() {
		if !f.hidden[ev] {
			fmt.Fprintf(&b, `<option value="%s">%s</option>`, html.EscapeString(url.PathEscape(ev.String())), html.EscapeString(ev.String()))
		}
	}
	f.mu.Unlock()
	fmt.Fprintf(&b, `</select>
<button type="button" onclick="location.href='/cases/case-details/%s/trigger/'+document.getElementById('next-step').value">Go</button>
<div class="mat-tab-label" onclick="document.getElementById('eventLogDetails').style.display='table'">History</div>
<table id="eventLogDetails" style="display:none"><tr><th>End state</th><td>%s</td></tr></table>`,
		html.EscapeString(id), html.EscapeString(state.String()))
	page(w, "Case "+id, b.String())
}

func (f *fakeExUI) eventForm(w http.ResponseWriter, r *http.Request) {
	action := "/cases/case-details/" + r.PathValue("id") + "/trigger/" + url.PathEscape(r.PathValue("event")) + "/submit"
	page(w, r.PathValue("event"), `
<form method="get" action="`+html.EscapeString(action)+`">
  <input type="radio" id="preAcceptCase_caseAccepted_Yes" name="caseAccepted" value="Yes">
  <input id="dateAccepted-day" name="day"><input id="dateAccepted-month" name="month"><input id="dateAccepted-year" name="year">
  <select id="clerkResponsible" name="clerkResponsible"><option></option><option>Anna Clerk</option><option>Ben Clerk</option></select>
  <select id="fileLocation" name="fileLocation"><option></option><option>Manchester</option><option>Casework Table</option></select>
  <select id="conciliationTrack" name="conciliationTrack"><option></option><option>Fast Track</option><option>Standard Track</option></select>
  <input id="claimantType_claimant_phone_number" name="claimant_phone_number">
  <select id="claimantType_claimant_contact_preference" name="claimant_contact_preference"><option></option><option>Email</option><option>Post</option></select>
  <input type="radio" id="claimantRepresentedQuestion_Yes" name="claimantRepresented" value="Yes">
  <input id="representativeClaimantType_name_of_representative" name="claimant_rep_name">
  <input id="representativeClaimantType_name_of_organisation" name="claimant_rep_org">
  <input id="representativeClaimantType_representative_email_address" name="claimant_rep_email">
  <input id="respondentCollection_0_respondent_phone1" name="respondent_phone1">
  <input type="radio" id="respondentCollection_0_respondent_ACAS_question_Yes" name="acas" value="Yes">
  <div id="repCollection"><button type="button">Add new</button>
    <select id="repCollection_0_dynamic_resp_rep_name" name="resp_rep_name"><option></option><option>Acme Widgets Ltd</option></select>
    <input id="repCollection_0_name_of_representative" name="resp_rep">
    <input id="repCollection_0_name_of_organisation" name="resp_rep_org">
  </div>
  <div id="jurCodesCollection"><button type="button">Add new</button>
    <select id="jurCodesCollection_0_juridictionCodesList" name="jurisdiction"><option></option><option>DDA</option><option>UDL</option></select>
  </div>
  <select id="positionType" name="positionType"><option></option><option>Case closed</option></select>
  <input type="radio" id="restrictedReporting_imposed_Yes" name="rr_imposed" value="Yes">
  <select id="restrictedReporting_requestedBy" name="rr_requestedBy"><option></option><option>Judge</option><option>Claimant</option></select>
  <button type="submit">Continue</button>
</form>`)
}

func (f *fakeExUI) checkYourAnswers(w http.ResponseWriter, r *http.Request) {
	event := domain.Event(r.PathValue("event"))
	f.mu.Lock()
	f.submitted[event] = r.URL.Query()
	f.mu.Unlock()
	page(w, "Check your answers", `<h2>Check your answers</h2>
<form method="post" action="`+html.EscapeString(r.URL.EscapedPath())+`"><button type="submit">Submit</button></form>`)
}

func (f *fakeExUI) submitEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	event := domain.Event(r.PathValue("event"))
	switch event {
	case domain.EventAcceptCase:
		f.setState(id, domain.StateAccepted)
	case domain.EventCloseCase:
		f.setState(id, domain.StateClosed)
	}
	http.Redirect(w, r, "/cases/case-details/"+id+"?updated="+url.QueryEscape(event.String()), http.StatusFound)
}
