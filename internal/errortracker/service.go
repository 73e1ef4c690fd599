/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package errortracker

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mattmezza/monlight/internal/httpx"
	"github.com/mattmezza/monlight/internal/logging"
)

// Service implements the public operations of spec.md §4.1 against a Store
// and a Notifier.
type Service struct {
	db         *sql.DB
	store      *Store
	notifier   Notifier
	lg         *logging.Logger
	baseURL    string
	recipients []string
	now        func() time.Time
}

func NewService(db *sql.DB, notifier Notifier, lg *logging.Logger, baseURL string, recipients []string) *Service {
	return &Service{db: db, store: NewStore(db), notifier: notifier, lg: lg, baseURL: baseURL, recipients: recipients, now: time.Now}
}

func validateReport(r Report) error {
	if r.Project == "" {
		return httpx.Validation("project is required")
	}
	if len(r.Project) > maxProjectLen {
		return httpx.Validation("project exceeds maximum length")
	}
	if r.ExceptionType == "" {
		return httpx.Validation("exception_type is required")
	}
	if len(r.ExceptionType) > maxTypeLen {
		return httpx.Validation("exception_type exceeds maximum length")
	}
	if r.Message == "" {
		return httpx.Validation("message is required")
	}
	if r.Environment != "" && len(r.Environment) > maxEnvLen {
		return httpx.Validation("environment exceeds maximum length")
	}
	return nil
}

// Ingest implements spec.md §4.1's Ingest(report) operation: fingerprint,
// then atomically look up an unresolved group, else a resolved one to
// reopen, else insert a new group; append an occurrence; prune the ring;
// dispatch a best-effort alert iff the branch is "created".
func (s *Service) Ingest(r Report) (*IngestResult, error) {
	if err := validateReport(r); err != nil {
		return nil, err
	}
	env := r.Environment
	if env == "" {
		env = defaultEnv
	}
	fp := Fingerprint(r.Project, r.ExceptionType, r.Traceback)
	now := s.now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, httpx.Server(fmt.Sprintf("begin transaction: %v", err))
	}
	defer tx.Rollback()

	var (
		group  Group
		branch Branch
	)

	if existing, err := s.store.findUnresolved(tx, fp); err != nil {
		return nil, httpx.Server(err.Error())
	} else if existing != nil {
		if _, err := tx.Exec(`UPDATE error_groups SET count=count+1, last_seen=? WHERE id=?`, now.Format(timeLayout), existing.ID); err != nil {
			return nil, httpx.Server(err.Error())
		}
		existing.Count++
		existing.LastSeen = now
		group = *existing
		branch = BranchIncremented
	} else if resolved, err := s.store.findResolved(tx, fp); err != nil {
		return nil, httpx.Server(err.Error())
	} else if resolved != nil {
		if _, err := tx.Exec(`UPDATE error_groups SET resolved=0, resolved_at=NULL, count=count+1, last_seen=? WHERE id=?`, now.Format(timeLayout), resolved.ID); err != nil {
			return nil, httpx.Server(err.Error())
		}
		resolved.Count++
		resolved.LastSeen = now
		resolved.Resolved = false
		resolved.ResolvedAt = nil
		group = *resolved
		branch = BranchReopened
	} else {
		res, err := tx.Exec(`INSERT INTO error_groups(fingerprint, project, environment, exception_type, message, traceback, count, first_seen, last_seen, resolved)
			VALUES (?,?,?,?,?,?,1,?,?,0)`,
			fp, r.Project, env, r.ExceptionType, r.Message, r.Traceback, now.Format(timeLayout), now.Format(timeLayout))
		if err != nil {
			return nil, httpx.Server(err.Error())
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, httpx.Server(err.Error())
		}
		group = Group{
			ID: id, Fingerprint: fp, Project: r.Project, Environment: env,
			ExceptionType: r.ExceptionType, Message: r.Message, Traceback: r.Traceback,
			Count: 1, FirstSeen: now, LastSeen: now,
		}
		branch = BranchCreated
	}

	occ := Occurrence{
		GroupID: group.ID, Timestamp: now, RequestURL: r.RequestURL, Method: r.RequestMethod,
		Headers: r.Headers, UserID: r.UserID, Extra: r.Extra, Traceback: r.Traceback,
	}
	if _, err := s.store.insertOccurrence(tx, group.ID, occ); err != nil {
		return nil, httpx.Server(err.Error())
	}
	if err := s.store.pruneRing(tx, group.ID); err != nil {
		return nil, httpx.Server(err.Error())
	}

	if err := tx.Commit(); err != nil {
		return nil, httpx.Server(fmt.Sprintf("commit transaction: %v", err))
	}

	if branch == BranchCreated {
		s.dispatchAlert(group)
	}

	return &IngestResult{Branch: branch, Group: group}, nil
}

func (s *Service) dispatchAlert(g Group) {
	subject := fmt.Sprintf("[monlight] new error in %s: %s", g.Project, g.ExceptionType)
	body := fmt.Sprintf("%s\n\nProject: %s\nEnvironment: %s\n\n%s", g.Message, g.Project, g.Environment, g.Traceback)
	if s.baseURL != "" {
		body += fmt.Sprintf("\n\n%s/errors/%d", s.baseURL, g.ID)
	}
	go func() {
		if err := s.notifier.Notify(subject, body, s.recipients); err != nil {
			s.lg.Error("alert notification failed", logging.SD("error", err.Error()))
		}
	}()
}

func (s *Service) List(f ListFilters) (*ListResult, error) {
	res, err := s.store.List(f)
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return res, nil
}

func (s *Service) Detail(id int64) (*Detail, error) {
	d, err := s.store.Detail(id)
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	if d == nil {
		return nil, httpx.NotFound("error group not found")
	}
	return d, nil
}

func (s *Service) Resolve(id int64) (*Group, error) {
	g, err := s.store.Resolve(id, s.now())
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	if g == nil {
		return nil, httpx.NotFound("error group not found")
	}
	return g, nil
}

func (s *Service) Projects() ([]string, error) {
	p, err := s.store.Projects()
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return p, nil
}

// RunRetention deletes resolved groups older than retentionDays (spec.md
// §4.1's background worker, run every 24 hours by the caller).
func (s *Service) RunRetention(retentionDays int) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	n, err := s.store.PruneResolved(cutoff)
	if err != nil {
		s.lg.Error("retention sweep failed", logging.SD("error", err.Error()))
	}
	return n, err
}
