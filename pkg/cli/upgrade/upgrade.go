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

// Package upgrade checks for a newer release of the command line interface
package upgrade

import (
	gocontext "context"
	"strings"
	"time"

	"github.com/google/go-github/github"
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/consts"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/database"
	"github.com/praxislearn/praxis/pkg/cli/log"
)

const (
	repoOwner = "praxislearn"
	repoName  = "praxis"

	// upgradeInterval is the minimum time between two release checks
	upgradeInterval = int64(86400 * 7)
)

// getLatestVersion fetches the latest release tag from GitHub
func getLatestVersion() (string, error) {
	gh := github.NewClient(nil)

	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), 10*time.Second)
	defer cancel()

	release, _, err := gh.Repositories.GetLatestRelease(ctx, repoOwner, repoName)
	if err != nil {
		return "", errors.Wrap(err, "fetching the latest release")
	}

	tag := release.GetTagName()

	return strings.TrimPrefix(tag, "v"), nil
}

func shouldCheck(ctx context.PraxisCtx) (bool, error) {
	if !ctx.EnableUpgradeCheck {
		return false, nil
	}

	ok, err := database.SystemExists(ctx.DB, consts.SystemLastUpgrade)
	if err != nil {
		return false, errors.Wrap(err, "checking for the last upgrade time")
	}
	if !ok {
		return true, nil
	}

	var lastChecked int64
	if err := database.GetSystem(ctx.DB, consts.SystemLastUpgrade, &lastChecked); err != nil {
		return false, errors.Wrap(err, "getting the last upgrade time")
	}

	now := ctx.Clock.Now().Unix()

	return now-lastChecked > upgradeInterval, nil
}

func touchLastChecked(ctx context.PraxisCtx) error {
	now := ctx.Clock.Now().Unix()

	if err := database.UpsertSystem(ctx.DB, consts.SystemLastUpgrade, now); err != nil {
		return errors.Wrap(err, "updating the last upgrade time")
	}

	return nil
}

// Check checks for the latest release and prints a notice if a newer version
// is available. Checks are throttled to once per interval.
func Check(ctx context.PraxisCtx) error {
	ok, err := shouldCheck(ctx)
	if err != nil {
		return errors.Wrap(err, "deciding whether to check")
	}
	if !ok {
		return nil
	}

	latest, err := getLatestVersion()
	if err != nil {
		return errors.Wrap(err, "getting the latest version")
	}

	if err := touchLastChecked(ctx); err != nil {
		return errors.Wrap(err, "recording the check time")
	}

	if latest == ctx.Version {
		log.Infof("you are up to date with v%s\n", ctx.Version)
		return nil
	}

	log.Infof("v%s is available. Run `praxis upgrade` instructions at https://github.com/%s/%s\n", latest, repoOwner, repoName)

	return nil
}
