package config

import (
	"regexp"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
)

// Retention is the (H, D, W, M) quadruple governing ring sizes. At least
// one hourly slot is mandatory: it's the ring every promotion draws from.
type Retention struct {
	Hourlies  uint `validate:"min=1"`
	Dailies   uint
	Weeklies  uint
	Monthlies uint
}

// Job is a single (host, directory) backup unit resolved from the
// configuration tree.
type Job struct {
	Host             string `validate:"required"`
	Directory        string `validate:"required"`
	Excludes         []string
	Retention        Retention `validate:"required"`
	Destination      string
	DestinationList  []string
	AutoTime         bool
	MustExceed       time.Duration
	CreateDir        bool
	LiteralDirectory bool
	HourlyDirName    string `validate:"required"`
	DailyDirName     string `validate:"required"`
	WeeklyDirName    string `validate:"required"`
	MonthlyDirName   string `validate:"required"`
	Scope            *Scope
}

// HostScopes returns every backup_host child scope of global.
func HostScopes(global *Scope) []*Scope {
	return global.Children
}

// DirectoryScopes returns every backup_directory child of a host scope.
// The host scope's own Directory list also names plain directories with
// no nested override block; Jobs handles both forms.
func DirectoryScopes(host *Scope) []*Scope {
	return host.Children
}

// Jobs enumerates every (host, directory) pair reachable from global,
// applying the pattern filters hostFilter/dirFilter (compiled regexes, nil
// meaning "match everything").
func Jobs(global *Scope, hostFilter, dirFilter *regexp.Regexp) ([]Job, error) {
	var jobs []Job
	for _, host := range HostScopes(global) {
		if hostFilter != nil && !hostFilter.MatchString(host.Name) {
			continue
		}

		seen := map[string]bool{}
		for _, dirScope := range DirectoryScopes(host) {
			if dirFilter != nil && !dirFilter.MatchString(dirScope.Name) {
				continue
			}
			jobs = append(jobs, resolveJob(host, dirScope, dirScope.Name))
			seen[dirScope.Name] = true
		}

		for _, dir := range host.List("directory", nil) {
			if seen[dir] {
				continue
			}
			if dirFilter != nil && !dirFilter.MatchString(dir) {
				continue
			}
			jobs = append(jobs, resolveJob(host, host, dir))
		}
	}
	if len(jobs) == 0 {
		return nil, cerr.New("no backup jobs matched the configured filters")
	}
	return jobs, nil
}

func resolveJob(host, scope *Scope, dir string) Job {
	mustExceed, _ := scope.Duration("mustexceed", 5*time.Minute)

	return Job{
		Host:      host.String("backuphost", host.Name),
		Directory: dir,
		Excludes:  scope.LookupAccumulated("exclude"),
		Retention: Retention{
			Hourlies:  scope.Uint("hourlies", 0),
			Dailies:   scope.Uint("dailies", 0),
			Weeklies:  scope.Uint("weeklies", 0),
			Monthlies: scope.Uint("monthlies", 0),
		},
		Destination:      scope.String("destination", ""),
		DestinationList:  scope.List("destinationlist", nil),
		AutoTime:         scope.Bool("autotime", true),
		MustExceed:       mustExceed,
		CreateDir:        scope.Bool("createdir", true),
		LiteralDirectory: scope.Bool("literaldirectory", false),
		HourlyDirName:    scope.String("hourlydir", "hourly"),
		DailyDirName:     scope.String("dailydir", "daily"),
		WeeklyDirName:    scope.String("weeklydir", "weekly"),
		MonthlyDirName:   scope.String("monthlydir", "monthly"),
		Scope:            scope,
	}
}

// RemoteSource builds the fqdn:dir argument passed to the external sync
// tool: a trailing slash is appended unless LiteralDirectory is set.
func (j Job) RemoteSource() string {
	dir := j.Directory
	if !j.LiteralDirectory && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return j.Host + ":" + dir
}
