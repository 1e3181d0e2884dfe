package raft

import (
	"github.com/sirupsen/logrus"
)

// nodeLogger wraps a logrus.Entry with the same domain-specific call
// shapes the teacher's hand-rolled Logger exposed (LogStateChange,
// LogElectionWon, ...), so the rest of the package logs the same events
// it always did — only the backend changed.
type nodeLogger struct {
	entry *logrus.Entry
}

func newNodeLogger(id string) *nodeLogger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	return &nodeLogger{entry: log.WithField("node", id)}
}

func (l *nodeLogger) withTerm(term uint64) *logrus.Entry {
	return l.entry.WithField("term", term)
}

func (l *nodeLogger) stateChange(old, new Role, term uint64) {
	l.withTerm(term).WithFields(logrus.Fields{
		"from": old.String(),
		"to":   new.String(),
	}).Info("role transition")
}

func (l *nodeLogger) electionStart(term uint64) {
	l.withTerm(term).Info("starting election")
}

func (l *nodeLogger) electionWon(term uint64, votes, needed int) {
	l.withTerm(term).WithFields(logrus.Fields{"votes": votes, "needed": needed}).Info("won election")
}

func (l *nodeLogger) electionLost(term uint64, votes, needed int) {
	l.withTerm(term).WithFields(logrus.Fields{"votes": votes, "needed": needed}).Info("lost election")
}

func (l *nodeLogger) voteGranted(candidate Address, term uint64) {
	l.withTerm(term).WithField("candidate", candidate.String()).Info("granted vote")
}

func (l *nodeLogger) voteDenied(candidate Address, term uint64, reason string) {
	l.withTerm(term).WithFields(logrus.Fields{
		"candidate": candidate.String(),
		"reason":    reason,
	}).Info("denied vote")
}

func (l *nodeLogger) heartbeatSent(term uint64, peers int) {
	l.withTerm(term).WithField("peers", peers).Debug("sent heartbeat")
}

func (l *nodeLogger) syncReceived(leader Address, term uint64, entries int) {
	l.withTerm(term).WithFields(logrus.Fields{
		"leader":  leader.String(),
		"entries": entries,
	}).Debug("received sync")
}

func (l *nodeLogger) commitAdvanced(index int, term uint64) {
	l.withTerm(term).WithField("index", index).Info("advanced commit")
}

func (l *nodeLogger) applied(index int, command string) {
	l.entry.WithFields(logrus.Fields{"index": index, "command": command}).Info("applied command")
}

func (l *nodeLogger) steppedDown(oldTerm, newTerm uint64) {
	l.entry.WithFields(logrus.Fields{"from_term": oldTerm, "to_term": newTerm}).Info("stepping down")
}

func (l *nodeLogger) electionTimeout() {
	l.entry.Debug("election timeout, becoming candidate")
}

func (l *nodeLogger) repair(peer Address, prefixLen int) {
	l.entry.WithFields(logrus.Fields{"peer": peer.String(), "prefix_len": prefixLen}).Debug("repairing follower log")
}

func (l *nodeLogger) joined(addr Address) {
	l.entry.WithField("peer", addr.String()).Info("peer joined")
}
