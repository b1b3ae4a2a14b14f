package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/crypto-power/cryptovote/libvote"
	"github.com/crypto-power/cryptovote/libvote/election"
	"github.com/crypto-power/cryptovote/libvote/session"
	"github.com/crypto-power/cryptovote/libvote/utils"
	"github.com/crypto-power/cryptovote/listeners"
	"github.com/jessevdk/go-flags"
	"github.com/nxadm/tail"
)

const sessionListenerID = "cli"

// cliApp is the state shared by every command. vm is set by the command
// handler before a command runs.
type cliApp struct {
	cfg *config
	ctx context.Context
	vm  *libvote.VoteManager

	out io.Writer
	in  io.Reader
}

// offlineCommand is implemented by commands that run without opening the
// vote database or dialing the ledger.
type offlineCommand interface {
	offline()
}

func registerCommands(parser *flags.Parser, app *cliApp) error {
	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"elections", "List a community's elections",
			"Lists the ongoing and past elections of a community.",
			&electionsCmd{app: app}},
		{"status", "Show an election and your eligibility",
			"Shows an election's candidates, its voting window and whether you can vote in it.",
			&statusCmd{app: app}},
		{"vote", "Cast a ballot",
			"Casts a ballot for a candidate and waits until the vote is final on the ledger.",
			&voteCmd{app: app}},
		{"results", "Tally elections",
			"Reads the vote counts of one or more elections from the ledger.",
			&resultsCmd{app: app}},
		{"publish", "Publish an election's results",
			"Tallies an ended election and stores the result on the metadata backend.",
			&publishCmd{app: app}},
		{"history", "List your ballot submissions",
			"Lists the ballots you submitted from this device.",
			&historyCmd{app: app}},
		{"logs", "Show the log file",
			"Prints the application log, optionally following new lines.",
			&logsCmd{app: app}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return err
		}
	}
	return nil
}

// commandHandler finishes the configuration and opens the vote manager
// before running command.
func (app *cliApp) commandHandler(command flags.Commander, args []string) error {
	if command == nil {
		return nil
	}
	if err := app.cfg.normalize(); err != nil {
		return err
	}

	initLogRotator(filepath.Join(app.cfg.LogDir, string(app.cfg.netType)), app.cfg.MaxLogZips)
	defer closeLogRotator()

	if _, ok := command.(offlineCommand); ok {
		return command.Execute(args)
	}

	vm, err := libvote.NewVoteManager(app.ctx, app.cfg.voteManagerConfig())
	if err != nil {
		return describe(err)
	}
	defer vm.Shutdown()
	app.vm = vm

	log.Debugf("Using %s via %s", app.cfg.netType.Display(), app.cfg.RPCURL)
	return describe(command.Execute(args))
}

func (app *cliApp) voter() (election.VoterIdentity, error) {
	if app.cfg.Token == "" {
		return election.VoterIdentity{}, fmt.Errorf("no session token: set --token or CRYPTOVOTE_TOKEN")
	}
	return app.vm.ResolveVoter(app.ctx, app.cfg.Token)
}

type electionsCmd struct {
	Community string `short:"c" long:"community" required:"true" description:"Community key"`
	app       *cliApp
}

func (c *electionsCmd) Execute(args []string) error {
	ongoing, past, err := c.app.vm.CommunityElections(c.app.ctx, c.Community, c.app.cfg.Token)
	if err != nil && len(ongoing)+len(past) == 0 {
		return err
	}
	if err != nil {
		fmt.Fprintf(c.app.out, "Backend unreachable, showing cached elections (%s)\n\n", utils.ErrorReason(err))
	}

	now := time.Now()
	w := tabwriter.NewWriter(c.app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Ongoing\t\t\t")
	printElections(w, ongoing, now)
	fmt.Fprintln(w, "\t\t\t")
	fmt.Fprintln(w, "Past\t\t\t")
	printElections(w, past, now)
	return w.Flush()
}

func printElections(w io.Writer, descs []*election.Descriptor, now time.Time) {
	if len(descs) == 0 {
		fmt.Fprintln(w, "  none\t\t\t")
		return
	}
	for _, d := range descs {
		var window string
		switch {
		case d.IsOpen(now):
			window = "ends " + utils.TimeAgo(d.EndTime, now)
		case d.HasEnded(now):
			window = "ended " + utils.FormatDateOrTime(d.EndTime, now)
		default:
			window = "starts " + utils.TimeAgo(d.StartTime, now)
		}
		fmt.Fprintf(w, "  %s\t%s\t%d candidates\t%s\n", d.ID, d.Name, len(d.Candidates), window)
	}
}

type statusCmd struct {
	Args struct {
		ElectionID string `positional-arg-name:"election-id"`
	} `positional-args:"yes" required:"yes"`
	app *cliApp
}

func (c *statusCmd) Execute(args []string) error {
	voter, err := c.app.voter()
	if err != nil {
		return err
	}
	desc, err := c.app.vm.Election(c.app.ctx, c.Args.ElectionID, voter.Credential)
	if err != nil {
		return err
	}
	result := c.app.vm.Eligibility(c.app.ctx, voter.VoterID, desc)

	out := c.app.out
	fmt.Fprintf(out, "%s (%s)\n", desc.Name, desc.ID)
	fmt.Fprintf(out, "Contract: %s\n", desc.ContractAddress)
	fmt.Fprintf(out, "Voting:   %s to %s UTC\n", utils.FormatFullDate(desc.StartTime), utils.FormatFullDate(desc.EndTime))
	fmt.Fprintln(out, "Candidates:")
	for _, cand := range desc.Candidates {
		fmt.Fprintf(out, "  %s\t%s\n", cand.ID, cand.DisplayName)
	}

	switch {
	case result.IsEligible() && desc.IsOpen(time.Now()):
		fmt.Fprintf(out, "%s can vote in this election\n", voter)
	case result.IsEligible():
		fmt.Fprintf(out, "%s is registered but the election is not open\n", voter)
	default:
		fmt.Fprintf(out, "%s cannot vote: %s\n", voter, result.Reason)
	}
	return nil
}

type voteCmd struct {
	Yes  bool `short:"y" long:"yes" description:"Do not ask for confirmation"`
	Args struct {
		ElectionID  string `positional-arg-name:"election-id"`
		CandidateID string `positional-arg-name:"candidate-id"`
	} `positional-args:"yes" required:"yes"`
	app *cliApp
}

func (c *voteCmd) Execute(args []string) error {
	voter, err := c.app.voter()
	if err != nil {
		return err
	}
	ctrl := c.app.vm.NewSession(voter)
	return castVote(c.app.ctx, ctrl, c.app.in, c.app.out, c.Args.ElectionID, c.Args.CandidateID, c.Yes)
}

// castVote drives ctrl through one vote, asking on in/out for confirmation
// unless skipPrompt is set.
func castVote(ctx context.Context, ctrl *session.Controller, in io.Reader, out io.Writer,
	electionID, candidateID string, skipPrompt bool) error {
	listener := listeners.NewSessionNotificationListener()
	if err := ctrl.AddNotificationListener(listener, sessionListenerID); err != nil {
		return err
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case n := <-listener.SessionNotifChan:
				logSessionNotification(n)
			case <-done:
				return
			}
		}
	}()
	defer func() {
		ctrl.RemoveNotificationListener(sessionListenerID)
		close(done)
		wg.Wait()
	}()

	if err := ctrl.SelectElection(ctx, electionID); err != nil {
		return err
	}
	snap := ctrl.Snapshot()
	if !snap.CanConfirm {
		return fmt.Errorf("cannot vote in %s: %s", snap.Election.Name, snap.Reason)
	}
	if err := ctrl.SelectCandidate(candidateID); err != nil {
		return err
	}

	candidate, _ := snap.Election.Candidate(candidateID)
	if !skipPrompt {
		prompt := fmt.Sprintf("Vote for %s in %s? Votes cannot be changed. [y/N] ",
			candidate.DisplayName, snap.Election.Name)
		if !promptConfirm(in, out, prompt) {
			_ = ctrl.CancelSelection()
			fmt.Fprintln(out, "Vote cancelled")
			return nil
		}
	}

	fmt.Fprintln(out, "Submitting vote, waiting for the ledger...")
	sub, err := ctrl.Confirm(ctx)
	if err != nil {
		if ctrl.Snapshot().Retryable {
			return fmt.Errorf("%v (you can try again)", describe(err))
		}
		return err
	}
	fmt.Fprintf(out, "Voted for %s. Transaction %s\n", candidate.DisplayName, sub.TxHash)
	return nil
}

func logSessionNotification(n listeners.SessionNotification) {
	switch n.Type {
	case listeners.StateChanged:
		if n.Snapshot.Reason != "" {
			log.Debugf("Session %s: %s (%s)", n.Snapshot.ElectionID, n.Snapshot.State, n.Snapshot.Reason)
			return
		}
		log.Debugf("Session %s: %s", n.Snapshot.ElectionID, n.Snapshot.State)
	case listeners.BallotConfirmed:
		log.Infof("Ballot %s confirmed", n.Ballot.TxHash)
	}
}

func promptConfirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	reply, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && reply == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "y", "yes":
		return true
	}
	return false
}

type resultsCmd struct {
	Args struct {
		ElectionIDs []string `positional-arg-name:"election-id" required:"1"`
	} `positional-args:"yes" required:"yes"`
	app *cliApp
}

func (c *resultsCmd) Execute(args []string) error {
	descs := make([]*election.Descriptor, 0, len(c.Args.ElectionIDs))
	for _, id := range c.Args.ElectionIDs {
		desc, err := c.app.vm.Election(c.app.ctx, id, c.app.cfg.Token)
		if err != nil {
			return err
		}
		descs = append(descs, desc)
	}

	results, err := c.app.vm.Results(c.app.ctx, descs)
	if err != nil {
		return err
	}
	for i, desc := range descs {
		if i > 0 {
			fmt.Fprintln(c.app.out)
		}
		if err = printResult(c.app.out, results[desc.ID]); err != nil {
			return err
		}
	}
	return nil
}

func printResult(out io.Writer, result *election.Result) error {
	fmt.Fprintf(out, "%s: %d votes\n", result.Name, result.TotalVotes)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, row := range result.Rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f%%\t\n", row.CandidateID, row.DisplayName, row.VoteCount, row.Percentage)
	}
	return w.Flush()
}

type publishCmd struct {
	Args struct {
		ElectionID string `positional-arg-name:"election-id"`
	} `positional-args:"yes" required:"yes"`
	app *cliApp
}

func (c *publishCmd) Execute(args []string) error {
	result, err := c.app.vm.PublishResults(c.app.ctx, c.Args.ElectionID, c.app.cfg.Token)
	if err != nil {
		return err
	}
	if err = printResult(c.app.out, result); err != nil {
		return err
	}
	fmt.Fprintln(c.app.out, "Results published")
	return nil
}

type historyCmd struct {
	app *cliApp
}

func (c *historyCmd) Execute(args []string) error {
	voter, err := c.app.voter()
	if err != nil {
		return err
	}
	subs, err := c.app.vm.Submissions(voter.VoterID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintln(c.app.out, "No ballots submitted")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(c.app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Submitted\tContract\tCandidate\tStatus\tTransaction")
	for _, s := range subs {
		status := s.Status.String()
		if s.Reason != "" {
			status += " (" + s.Reason + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", utils.FormatDateOrTime(s.SubmittedAt, now),
			s.ElectionContractAddress, s.CandidateID, status, s.TxHash)
	}
	return w.Flush()
}

type logsCmd struct {
	Follow bool `short:"f" long:"follow" description:"Keep printing lines as they are logged"`
	app    *cliApp
}

func (c *logsCmd) offline() {}

func (c *logsCmd) Execute(args []string) error {
	logPath := filepath.Join(c.app.cfg.LogDir, string(c.app.cfg.netType), utils.LogFileName)
	t, err := tail.TailFile(logPath, tail.Config{
		Follow:    c.Follow,
		ReOpen:    c.Follow,
		Poll:      runtime.GOOS == "windows",
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("unable to tail log file: %v", err)
	}
	defer t.Cleanup()

	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				return t.Wait()
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(c.app.out, line.Text)
		case <-c.app.ctx.Done():
			return t.Stop()
		}
	}
}

// describe returns the user facing reason of coded errors.
func describe(err error) error {
	if err == nil {
		return nil
	}
	code := utils.ErrorCode(err)
	if code == "" {
		return err
	}
	return fmt.Errorf("%s [%s]", utils.ErrorReason(err), code)
}

func newCLIApp(ctx context.Context, cfg *config) *cliApp {
	return &cliApp{
		cfg: cfg,
		ctx: ctx,
		out: os.Stdout,
		in:  os.Stdin,
	}
}
