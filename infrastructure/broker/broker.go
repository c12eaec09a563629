// Package broker carries group envelopes between server processes.
package broker

import (
	"fasolink-chat/domain"
	"strings"
)

const (
	subjectPrefix = "fasolink.group."
	// subjectPattern matches every group, both Redis PSUBSCRIBE and NATS accept it.
	subjectPattern = subjectPrefix + "*"
)

// Subject is the channel name a group is published on.
func Subject(group domain.GroupName) string {
	return subjectPrefix + string(group)
}

// GroupFromSubject is the inverse of Subject.
func GroupFromSubject(subject string) (domain.GroupName, bool) {
	name, ok := strings.CutPrefix(subject, subjectPrefix)
	if !ok {
		return "", false
	}
	group, err := domain.ParseGroupName(name)
	if err != nil {
		return "", false
	}
	return group, true
}
