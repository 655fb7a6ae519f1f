/* Copyright 2025 Praxis Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package job runs the periodic background tasks of the server.
package job

import (
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/server/app"
	"github.com/praxislearn/praxis/pkg/server/database"
	"github.com/praxislearn/praxis/pkg/server/log"
	"github.com/robfig/cron"
)

// Scheduler runs maintenance jobs on a fixed schedule
type Scheduler struct {
	app  *app.App
	cron *cron.Cron
}

// NewScheduler returns a new scheduler for the given app
func NewScheduler(a *app.App) *Scheduler {
	return &Scheduler{
		app:  a,
		cron: cron.New(),
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	if err := s.cron.AddFunc("@every 5m", s.checkpointWAL); err != nil {
		return errors.Wrap(err, "scheduling WAL checkpoint")
	}
	if err := s.cron.AddFunc("@every 24h", s.vacuum); err != nil {
		return errors.Wrap(err, "scheduling vacuum")
	}
	if err := s.cron.AddFunc("@every 1h", s.purgeExpiredSessions); err != nil {
		return errors.Wrap(err, "scheduling session purge")
	}
	if err := s.cron.AddFunc("@every 1h", s.sweepDismissals); err != nil {
		return errors.Wrap(err, "scheduling dismissal sweep")
	}

	s.cron.Start()

	return nil
}

// Stop stops the scheduler. Running jobs are not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) checkpointWAL() {
	if err := database.CheckpointWAL(s.app.DB); err != nil {
		log.ErrorWrap(err, "checkpointing WAL")
	}
}

func (s *Scheduler) vacuum() {
	if err := database.Vacuum(s.app.DB); err != nil {
		log.ErrorWrap(err, "vacuuming database")
	}
}

func (s *Scheduler) purgeExpiredSessions() {
	count, err := s.app.PurgeExpiredSessions()
	if err != nil {
		log.ErrorWrap(err, "purging expired sessions")
		return
	}

	if count > 0 {
		log.WithFields(log.Fields{
			"count": count,
		}).Info("purged expired sessions")
	}
}

func (s *Scheduler) sweepDismissals() {
	count, err := s.app.SweepExpiredDismissals()
	if err != nil {
		log.ErrorWrap(err, "sweeping expired dismissals")
		return
	}

	if count > 0 {
		log.WithFields(log.Fields{
			"count": count,
		}).Info("swept expired dismissals")
	}
}
