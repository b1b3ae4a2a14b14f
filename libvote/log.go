// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package libvote

import (
	"github.com/crypto-power/cryptovote/libvote/ballot"
	"github.com/crypto-power/cryptovote/libvote/directory"
	"github.com/crypto-power/cryptovote/libvote/eligibility"
	"github.com/crypto-power/cryptovote/libvote/internal/backend"
	"github.com/crypto-power/cryptovote/libvote/ledger"
	"github.com/crypto-power/cryptovote/libvote/session"
	"github.com/crypto-power/cryptovote/libvote/tally"
	"github.com/decred/slog"
)

var log = slog.Disabled

// Loggers holds one logger per libvote subsystem.
type Loggers struct {
	Main        slog.Logger
	Directory   slog.Logger
	Ledger      slog.Logger
	Eligibility slog.Logger
	Ballot      slog.Logger
	Tally       slog.Logger
	Session     slog.Logger
}

// UseLoggers sets the subsystem logs to use the provided loggers. Nil
// loggers leave the subsystem disabled.
func UseLoggers(l Loggers) {
	pick := func(logger slog.Logger) slog.Logger {
		if logger == nil {
			return slog.Disabled
		}
		return logger
	}
	log = pick(l.Main)
	directory.UseLogger(pick(l.Directory))
	backend.UseLogger(pick(l.Directory))
	ledger.UseLogger(pick(l.Ledger))
	eligibility.UseLogger(pick(l.Eligibility))
	ballot.UseLogger(pick(l.Ballot))
	tally.UseLogger(pick(l.Tally))
	session.UseLogger(pick(l.Session))
}

// UseLogger sets every subsystem log to the provided logger.
func UseLogger(logger slog.Logger) {
	UseLoggers(Loggers{logger, logger, logger, logger, logger, logger, logger})
}

// DisableLog disables all library log output.
func DisableLog() {
	UseLoggers(Loggers{})
}
