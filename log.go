// Copyright (c) 2016, 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crypto-power/cryptovote/libvote"
	"github.com/crypto-power/cryptovote/libvote/utils"
	"github.com/crypto-power/cryptovote/logger"
	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard error and
// the write-end pipe of an initialized log rotator. Standard output is kept
// for command output.
type logWriter struct{}

// Write writes the data in p to standard error and the log rotator.
func (logWriter) Write(p []byte) (n int, err error) {
	os.Stderr.Write(p)
	if logRotator == nil {
		return len(p), nil
	}
	return logRotator.Write(p)
}

// Loggers per subsystem.  A single backend logger is created and all subsytem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers should not be used before the log rotator has been initialized with
// a log file.  This must be performed early during application startup by
// calling initLogRotator.
var (
	// backendLog is the logging backend used to create all subsystem loggers.
	backendLog = slog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	log     = backendLog.Logger("CVOT")
	vmgrLog = backendLog.Logger("VMGR")
	dircLog = backendLog.Logger("DIRC")
	ldgrLog = backendLog.Logger("LDGR")
	eligLog = backendLog.Logger("ELIG")
	blotLog = backendLog.Logger("BLOT")
	talyLog = backendLog.Logger("TALY")
	sesnLog = backendLog.Logger("SESN")
)

// Initialize package-global logger variables.
func init() {
	libvote.UseLoggers(libvote.Loggers{
		Main:        vmgrLog,
		Directory:   dircLog,
		Ledger:      ldgrLog,
		Eligibility: eligLog,
		Ballot:      blotLog,
		Tally:       talyLog,
		Session:     sesnLog,
	})

	logger.New(subsystemLoggers)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]slog.Logger{
	"CVOT": log,
	"VMGR": vmgrLog,
	"DIRC": dircLog,
	"LDGR": ldgrLog,
	"ELIG": eligLog,
	"BLOT": blotLog,
	"TALY": talyLog,
	"SESN": sesnLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logDir string, maxRolls int) {
	err := os.MkdirAll(logDir, utils.UserFilePerm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	r, err := rotator.New(filepath.Join(logDir, utils.LogFileName), 32*1024, false, maxRolls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}
	logRotator = r
}

func closeLogRotator() {
	if logRotator != nil {
		logRotator.Close()
	}
}
