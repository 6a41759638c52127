package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/mcalder/pocketbank/internal/audit"
	"github.com/mcalder/pocketbank/internal/config"
	"github.com/mcalder/pocketbank/internal/database/repository"
	"github.com/mcalder/pocketbank/internal/ledger"
	"github.com/mcalder/pocketbank/internal/service"
)

// App ties together views.
type App struct {
	ctx      context.Context
	cfg      config.Config
	repos    Repos
	services Services

	state    appState
	modal    modalState
	status   string
	currency string

	inputBuffer string
	usernames   []string

	// create flow
	createStage createStage
	newUsername string
	newDisplay  string
	newPINHash  string
	pinNote     string
	pinAttempts int
	newChecking decimal.Decimal

	// login + transact flow
	loginStage loginStage
	session    *service.LoginSession
	account    *ledger.Account
	txStage    txStage
	txClass    ledger.Class

	// delete flow
	deleteTarget *ledger.Account
	deleteRows   int

	report *service.Report
}

type Repos struct {
	Accounts *repository.AccountRepo
	Trail    *audit.Log
}

type Services struct {
	Guard     *service.Guard
	Processor *service.Processor
	Accounts  *service.AccountService
	Reporter  *service.Reporter
}

type appState string

const (
	viewMenu     appState = "menu"
	viewCreate   appState = "create"
	viewLogin    appState = "login"
	viewTransact appState = "transact"
	viewStats    appState = "stats"
	viewDelete   appState = "delete"
)

type modalState string

const (
	modalNone          modalState = ""
	modalConfirmDelete modalState = "confirmDelete"
)

type createStage string

const (
	createUsername createStage = "username"
	createDisplay  createStage = "display"
	createPIN      createStage = "pin"
	createChecking createStage = "checking"
	createSavings  createStage = "savings"
)

type loginStage string

const (
	loginUsername loginStage = "username"
	loginPIN      loginStage = "pin"
	loginLocked   loginStage = "locked"
	loginReset    loginStage = "reset"
)

type txStage string

const (
	txClass  txStage = "class"
	txAmount txStage = "amount"
)

// maxPINEntryAttempts is how many invalid PIN-creation entries are tolerated
// before the fallback generator takes over (when policy.pin_fallback is on).
const maxPINEntryAttempts = 3

func New(ctx context.Context, cfg config.Config, repos Repos, services Services) *App {
	return &App{
		ctx:         ctx,
		cfg:         cfg,
		repos:       repos,
		services:    services,
		state:       viewMenu,
		createStage: createUsername,
		loginStage:  loginUsername,
		txStage:     txClass,
		currency:    cfg.UI.CurrencySymbol,
	}
}

func (a *App) Init() tea.Cmd {
	return a.loadAccounts()
}

func (a *App) loadAccounts() tea.Cmd {
	return func() tea.Msg {
		list, err := a.repos.Accounts.List(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return accountsMsg(list)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		switch a.state {
		case viewCreate:
			return a.handleCreateKey(m)
		case viewLogin:
			return a.handleLoginKey(m)
		case viewTransact:
			return a.handleTransactKey(m)
		case viewStats:
			return a.handleStatsKey(m)
		case viewDelete:
			return a.handleDeleteKey(m)
		default:
			return a.handleMenuKey(m)
		}
	case accountsMsg:
		a.usernames = make([]string, 0, len(m))
		for _, acct := range m {
			a.usernames = append(a.usernames, acct.Username)
		}
	case accountCreatedMsg:
		note := a.pinNote
		a.resetToMenu(fmt.Sprintf("account %s created", m.account.Username))
		if note != "" {
			a.status = note + "; " + a.status
		}
		return a, a.loadAccounts()
	case sessionMsg:
		a.session = m
		a.loginStage = loginPIN
		a.inputBuffer = ""
		a.status = ""
	case unknownUserMsg:
		a.status = "no such user: " + m.username
		if hint := closestUsername(m.username, a.usernames); hint != "" {
			a.status += fmt.Sprintf(" (did you mean %s?)", hint)
		}
	case pinResetMsg:
		a.session = nil
		a.loginStage = loginUsername
		a.status = "PIN updated, log in again"
		if a.pinNote != "" {
			a.status = a.pinNote + "; " + a.status
		}
		a.pinNote = ""
	case txAppliedMsg:
		a.account = m.Account
		a.status = fmt.Sprintf("new %s balance: %s%s", classLabel(m.Record.Class), a.currency, m.Record.NewBalance.StringFixed(2))
		if m.AuditErr != nil {
			a.status += "  (warning: audit trail write failed: " + m.AuditErr.Error() + ")"
		}
	case deletePreviewMsg:
		a.deleteTarget = m.account
		a.deleteRows = m.rows
		a.modal = modalConfirmDelete
	case accountDeletedMsg:
		status := fmt.Sprintf("deleted %s, purged %d audit rows", m.Account.Username, m.PurgedRows)
		if m.AuditErr != nil {
			status = fmt.Sprintf("deleted %s, but audit purge failed: %v", m.Account.Username, m.AuditErr)
		}
		a.resetToMenu(status)
		return a, a.loadAccounts()
	case reportMsg:
		rep := service.Report(m)
		a.report = &rep
	case statusMsg:
		a.status = string(m)
	case errMsg:
		if errors.Is(m.error, ledger.ErrInsufficientFunds) {
			a.status = "insufficient funds: balance unchanged"
		} else {
			a.status = "error: " + m.Error()
		}
	}
	return a, nil
}

func (a *App) View() string {
	var body string
	switch a.state {
	case viewCreate:
		body = a.renderCreate()
	case viewLogin:
		body = a.renderLogin()
	case viewTransact:
		body = a.renderTransact()
	case viewStats:
		body = a.renderStats()
	case viewDelete:
		body = a.renderDelete()
	default:
		body = a.renderMenu()
	}
	if a.modal != modalNone {
		body += "\n\n" + a.renderModal()
	}
	return body
}

// commands

func (a *App) createCmd(username, display, pinHash string, checking, savings decimal.Decimal) tea.Cmd {
	return func() tea.Msg {
		acct, err := a.services.Accounts.CreateAccount(a.ctx, username, display, pinHash, checking, savings)
		if err != nil {
			return errMsg{err}
		}
		return accountCreatedMsg{account: acct}
	}
}

func (a *App) beginLoginCmd(username string) tea.Cmd {
	return func() tea.Msg {
		sess, err := a.services.Guard.Begin(a.ctx, username)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return unknownUserMsg{username: username}
			}
			return errMsg{err}
		}
		return sessionMsg(sess)
	}
}

func (a *App) resetPINCmd(pinHash string) tea.Cmd {
	sess := a.session
	return func() tea.Msg {
		if err := sess.ResetPIN(a.ctx, pinHash); err != nil {
			return errMsg{err}
		}
		return pinResetMsg{}
	}
}

func (a *App) applyCmd(amount decimal.Decimal) tea.Cmd {
	acct, class := a.account, a.txClass
	return func() tea.Msg {
		res, err := a.services.Processor.Apply(a.ctx, acct, class, amount)
		if err != nil {
			return errMsg{err}
		}
		return txAppliedMsg(res)
	}
}

func (a *App) deletePreviewCmd(username string) tea.Cmd {
	return func() tea.Msg {
		acct, err := a.repos.Accounts.Find(a.ctx, username)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return unknownUserMsg{username: username}
			}
			return errMsg{err}
		}
		recs, err := a.repos.Trail.Records()
		if err != nil {
			return errMsg{err}
		}
		rows := 0
		for _, rec := range recs {
			if rec.Username == acct.Username {
				rows++
			}
		}
		return deletePreviewMsg{account: acct, rows: rows}
	}
}

func (a *App) deleteCmd(username string) tea.Cmd {
	return func() tea.Msg {
		res, err := a.services.Accounts.DeleteAccount(a.ctx, username)
		if err != nil {
			return errMsg{err}
		}
		return accountDeletedMsg(res)
	}
}

func (a *App) statsCmd() tea.Cmd {
	return func() tea.Msg {
		rep, err := a.services.Reporter.Statistics(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return reportMsg(rep)
	}
}

// key handlers

func (a *App) handleMenuKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "1":
		a.resetToMenu("")
		a.state = viewCreate
	case "2":
		a.resetToMenu("")
		a.state = viewDelete
	case "3":
		a.resetToMenu("")
		a.state = viewLogin
	case "4":
		a.resetToMenu("")
		a.state = viewStats
		a.report = nil
		return a, a.statsCmd()
	}
	return a, nil
}

func (a *App) handleCreateKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.String() == "ctrl+c" {
		return a, tea.Quit
	}
	switch m.Type {
	case tea.KeyEsc:
		a.resetToMenu("")
		return a, nil
	case tea.KeyEnter:
		return a.submitCreateField()
	}
	a.handleTextKey(m)
	return a, nil
}

func (a *App) submitCreateField() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(a.inputBuffer)
	switch a.createStage {
	case createUsername:
		if input == "" {
			a.status = "enter a username"
			return a, nil
		}
		a.newUsername = input
		a.inputBuffer = ""
		a.status = ""
		a.createStage = createDisplay
	case createDisplay:
		a.newDisplay = input
		a.inputBuffer = ""
		a.status = ""
		a.createStage = createPIN
	case createPIN:
		pin, attempts, note := nextPIN(input, a.pinAttempts, a.cfg.Policy.PINFallback)
		a.pinAttempts = attempts
		a.inputBuffer = ""
		if pin == "" {
			a.status = note
			return a, nil
		}
		a.newPINHash = ledger.HashPIN(pin)
		a.pinNote = note
		a.status = ""
		a.createStage = createChecking
	case createChecking:
		amt, ok, note := a.parseDeposit(input)
		a.status = note
		if !ok {
			return a, nil
		}
		a.newChecking = amt
		a.inputBuffer = ""
		a.createStage = createSavings
	case createSavings:
		amt, ok, note := a.parseDeposit(input)
		a.status = note
		if !ok {
			return a, nil
		}
		a.inputBuffer = ""
		return a, a.createCmd(a.newUsername, a.newDisplay, a.newPINHash, a.newChecking, amt)
	}
	return a, nil
}

// parseDeposit applies the initial-deposit input policy: unparseable text
// becomes 0.00 when policy.lenient_amounts is on, negatives are always
// rejected.
func (a *App) parseDeposit(input string) (decimal.Decimal, bool, string) {
	amt, err := ledger.ParseAmount(input)
	if err != nil {
		if !a.cfg.Policy.LenientAmounts {
			return decimal.Decimal{}, false, "error: " + err.Error()
		}
		return decimal.Zero, true, fmt.Sprintf("could not read %q, depositing 0.00", input)
	}
	if amt.IsNegative() {
		return decimal.Decimal{}, false, "initial deposit cannot be negative"
	}
	return amt, true, ""
}

func (a *App) handleLoginKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if a.loginStage == loginLocked {
		switch m.String() {
		case "y", "Y":
			a.loginStage = loginReset
			a.pinAttempts = 0
			a.inputBuffer = ""
			a.status = ""
		case "n", "N", "esc":
			a.resetToMenu("")
		}
		return a, nil
	}
	switch m.Type {
	case tea.KeyEsc:
		a.resetToMenu("")
		return a, nil
	case tea.KeyEnter:
		return a.submitLoginField()
	}
	a.handleTextKey(m)
	return a, nil
}

func (a *App) submitLoginField() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(a.inputBuffer)
	switch a.loginStage {
	case loginUsername:
		if input == "" {
			a.status = "enter a username"
			return a, nil
		}
		a.inputBuffer = ""
		return a, a.beginLoginCmd(input)
	case loginPIN:
		a.inputBuffer = ""
		res := a.session.Verify(input)
		switch res.State {
		case service.StateAuthenticated:
			a.account = res.Account
			a.state = viewTransact
			a.txStage = txClass
			name := res.Account.DisplayName
			if name == "" {
				name = res.Account.Username
			}
			a.status = "welcome, " + name
		case service.StateLocked:
			a.loginStage = loginLocked
			a.status = ""
		default:
			a.status = fmt.Sprintf("invalid pin, %d attempts left", res.AttemptsLeft)
		}
	case loginReset:
		pin, attempts, note := nextPIN(input, a.pinAttempts, a.cfg.Policy.PINFallback)
		a.pinAttempts = attempts
		a.inputBuffer = ""
		if pin == "" {
			a.status = note
			return a, nil
		}
		a.pinNote = note
		return a, a.resetPINCmd(ledger.HashPIN(pin))
	}
	return a, nil
}

func (a *App) handleTransactKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if a.txStage == txClass {
		switch m.String() {
		case "c", "C":
			a.txClass = ledger.Checking
			a.txStage = txAmount
			a.inputBuffer = ""
			a.status = ""
		case "s", "S":
			a.txClass = ledger.Savings
			a.txStage = txAmount
			a.inputBuffer = ""
			a.status = ""
		case "esc", "q":
			a.resetToMenu("logged out")
		}
		return a, nil
	}
	switch m.Type {
	case tea.KeyEsc:
		a.txStage = txClass
		a.inputBuffer = ""
		return a, nil
	case tea.KeyEnter:
		input := strings.TrimSpace(a.inputBuffer)
		amt, err := ledger.ParseAmount(input)
		if err != nil {
			if !a.cfg.Policy.LenientAmounts {
				a.status = "error: " + err.Error()
				return a, nil
			}
			amt = decimal.Zero
			a.status = fmt.Sprintf("could not read %q, treating as 0.00", input)
		}
		a.inputBuffer = ""
		return a, a.applyCmd(amt)
	}
	a.handleTextKey(m)
	return a, nil
}

func (a *App) handleStatsKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "r":
		a.report = nil
		return a, a.statsCmd()
	case "esc", "enter":
		a.resetToMenu("")
	}
	return a, nil
}

func (a *App) handleDeleteKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.String() == "ctrl+c" {
		return a, tea.Quit
	}
	switch m.Type {
	case tea.KeyEsc:
		a.resetToMenu("")
		return a, nil
	case tea.KeyEnter:
		input := strings.TrimSpace(a.inputBuffer)
		if input == "" {
			a.status = "enter a username"
			return a, nil
		}
		return a, a.deletePreviewCmd(input)
	}
	a.handleTextKey(m)
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case modalConfirmDelete:
		switch m.String() {
		case "y", "Y":
			a.modal = modalNone
			target := a.deleteTarget.Username
			a.deleteTarget = nil
			return a, a.deleteCmd(target)
		case "n", "N", "esc":
			a.modal = modalNone
			a.deleteTarget = nil
			a.status = "delete cancelled"
		}
	}
	return a, nil
}

// handleTextKey appends printable input to the shared prompt buffer.
func (a *App) handleTextKey(m tea.KeyMsg) {
	switch m.Type {
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(a.inputBuffer) > 0 {
			a.inputBuffer = a.inputBuffer[:len(a.inputBuffer)-1]
		}
	case tea.KeySpace:
		a.inputBuffer += " "
	case tea.KeyRunes:
		a.inputBuffer += string(m.Runes)
	}
}

// resetToMenu clears all per-flow state and returns to the menu with the
// given status line.
func (a *App) resetToMenu(status string) {
	a.state = viewMenu
	a.modal = modalNone
	a.status = status
	a.inputBuffer = ""
	a.createStage = createUsername
	a.newUsername = ""
	a.newDisplay = ""
	a.newPINHash = ""
	a.pinNote = ""
	a.pinAttempts = 0
	a.newChecking = decimal.Zero
	a.loginStage = loginUsername
	a.session = nil
	a.account = nil
	a.txStage = txClass
	a.deleteTarget = nil
	a.deleteRows = 0
}

// messages

type accountsMsg []ledger.Account

type accountCreatedMsg struct{ account *ledger.Account }

type sessionMsg *service.LoginSession

type unknownUserMsg struct{ username string }

type pinResetMsg struct{}

type txAppliedMsg service.TxResult

type deletePreviewMsg struct {
	account *ledger.Account
	rows    int
}

type accountDeletedMsg service.DeleteResult

type reportMsg service.Report

type statusMsg string

type errMsg struct{ error }

// styles
var titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

func (a *App) renderMenu() string {
	title := titleStyle.Render("PocketBank")
	body := fmt.Sprintf("%d accounts on file\n\n", len(a.usernames))
	body += "[1] Create account  [2] Delete account  [3] Transact  [4] Statistics  [q] Quit"
	if a.status != "" {
		body += "\n" + a.status
	}
	return fmt.Sprintf("%s\n%s", title, body)
}

func (a *App) renderCreate() string {
	out := titleStyle.Render("Create Account") + "\n"
	if a.newUsername != "" {
		out += "Username: " + a.newUsername + "\n"
	}
	switch a.createStage {
	case createUsername:
		out += "Username: " + a.inputBuffer
	case createDisplay:
		out += "Display name (optional): " + a.inputBuffer
	case createPIN:
		out += "PIN (4 digits, or 'random'): " + a.inputBuffer
	case createChecking:
		if a.pinNote != "" {
			out += a.pinNote + "\n"
		}
		out += fmt.Sprintf("Initial checking deposit (%s): %s", a.currency, a.inputBuffer)
	case createSavings:
		out += fmt.Sprintf("Initial savings deposit (%s): %s", a.currency, a.inputBuffer)
	}
	out += "\n[enter] Next  [esc] Back to menu"
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderLogin() string {
	out := titleStyle.Render("Log In") + "\n"
	switch a.loginStage {
	case loginUsername:
		out += "Username: " + a.inputBuffer
	case loginPIN:
		out += "Username: " + a.session.Username() + "\n"
		out += "PIN: " + strings.Repeat("*", len(a.inputBuffer))
	case loginLocked:
		out += "Account locked after 3 failed PIN attempts.\nReset PIN now? [y] Yes  [n] Back to menu"
	case loginReset:
		out += "New PIN (4 digits, or 'random'): " + a.inputBuffer
	}
	if a.loginStage != loginLocked {
		out += "\n[enter] Submit  [esc] Back to menu"
	}
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderTransact() string {
	name := a.account.DisplayName
	if name == "" {
		name = a.account.Username
	}
	out := titleStyle.Render("Transact: "+name) + "\n"
	if a.txStage == txClass {
		out += fmt.Sprintf("Checking %s%s  Savings %s%s\n", a.currency, a.account.Checking.StringFixed(2), a.currency, a.account.Savings.StringFixed(2))
		out += "Which balance? [c] Checking  [s] Savings  [esc] Log out"
	} else {
		out += fmt.Sprintf("%s balance: %s%s\n", classLabel(a.txClass), a.currency, a.account.Balance(a.txClass).StringFixed(2))
		out += fmt.Sprintf("Amount (negative withdraws): %s", a.inputBuffer)
		out += "\n[enter] Apply  [esc] Pick another balance"
	}
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderStats() string {
	title := titleStyle.Render("Statistics")
	if a.report == nil {
		return title + "\nloading..."
	}
	if a.report.Count == 0 {
		return title + "\nno accounts yet\n[r] Refresh  [esc] Back"
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Class", "Mean", "Above mean"})
	table.Append([]string{"checking", a.currency + a.report.Checking.Mean.StringFixed(2), strings.Join(a.report.Checking.AboveMean, ", ")})
	table.Append([]string{"savings", a.currency + a.report.Savings.Mean.StringFixed(2), strings.Join(a.report.Savings.AboveMean, ", ")})
	table.Render()

	out := fmt.Sprintf("%s\n%d accounts\n%s[r] Refresh  [esc] Back", title, a.report.Count, buf.String())
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderDelete() string {
	out := titleStyle.Render("Delete Account") + "\n"
	out += "Username: " + a.inputBuffer
	out += "\n[enter] Look up  [esc] Back to menu"
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalConfirmDelete:
		return titleStyle.Render("Delete "+a.deleteTarget.Username+"?") +
			fmt.Sprintf("\nThis removes the account and its %d audit rows.\n[y] Yes  [n] No", a.deleteRows)
	default:
		return ""
	}
}

func classLabel(c ledger.Class) string {
	if c == ledger.Savings {
		return "Savings"
	}
	return "Checking"
}

// nextPIN resolves one PIN-prompt entry: a literal 'random' or the third
// consecutive invalid entry (with fallback on) generates a PIN, a valid
// 4-digit entry is accepted as-is. The returned note carries the generated
// PIN so the prompt can show it once.
func nextPIN(input string, attempts int, fallback bool) (string, int, string) {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "random") {
		pin := ledger.GeneratePIN()
		return pin, 0, "generated PIN: " + pin + " (save it)"
	}
	if err := ledger.ValidatePIN(input); err != nil {
		attempts++
		if fallback && attempts >= maxPINEntryAttempts {
			pin := ledger.GeneratePIN()
			return pin, 0, "generated PIN: " + pin + " (save it)"
		}
		return "", attempts, err.Error()
	}
	return input, 0, ""
}

// closestUsername suggests the nearest existing username for a typo'd one,
// or "" when nothing is close enough to be helpful.
func closestUsername(input string, usernames []string) string {
	const maxDistance = 2
	best, bestDist := "", maxDistance+1
	for _, u := range usernames {
		d := levenshtein.ComputeDistance(strings.ToLower(input), strings.ToLower(u))
		if d < bestDist {
			best, bestDist = u, d
		}
	}
	return best
}
