// Package fetcher assembles the account snapshot from the dbt Cloud API.
//
// Order of the fetch:
//  1. account name (optional, failure is only logged)
//  2. connections and repositories, in parallel
//  3. projects, for each project: environments, then jobs, then environment variables
//
// Jobs reference environments of the same project, so environments are always fetched first.
package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/dbtcloud"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/log"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/model"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/resolve"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/errors"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/strhelper"
)

type Fetcher struct {
	client          *dbtcloud.Client
	logger          log.Logger
	onProject       func(project *model.Project)
	skipAccountName bool
}

type Option func(f *Fetcher)

// WithProjectCallback registers a callback invoked after each fully fetched project.
func WithProjectCallback(fn func(project *model.Project)) Option {
	return func(f *Fetcher) {
		f.onProject = fn
	}
}

// WithoutAccountName disables the account name request.
func WithoutAccountName() Option {
	return func(f *Fetcher) {
		f.skipAccountName = true
	}
}

func New(client *dbtcloud.Client, logger log.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{client: client, logger: logger}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FetchAccountSnapshot fetches the whole account.
// Any error, except optional parts (account name, environment variables), aborts the fetch.
func (f *Fetcher) FetchAccountSnapshot(ctx context.Context) (*model.AccountSnapshot, error) {
	f.logger.Info("Fetching dbt Cloud account snapshot ...")
	snapshot := &model.AccountSnapshot{AccountID: f.client.AccountID()}

	grp, grpCtx := errgroup.WithContext(ctx)
	if !f.skipAccountName {
		grp.Go(func() error {
			snapshot.AccountName = f.fetchAccountName(grpCtx)
			return nil
		})
	}
	grp.Go(func() (err error) {
		snapshot.Globals.Connections, err = f.fetchConnections(grpCtx)
		return err
	})
	grp.Go(func() (err error) {
		snapshot.Globals.Repositories, err = f.fetchRepositories(grpCtx)
		return err
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	projects, err := f.fetchProjects(ctx, snapshot.Globals)
	if err != nil {
		return nil, err
	}
	snapshot.Projects = projects

	counts := snapshot.Counts()
	f.logger.Infow(
		"Fetched dbt Cloud account snapshot",
		"account_id", snapshot.AccountID,
		"connections", counts.Connections,
		"repositories", counts.Repositories,
		"projects", counts.Projects,
		"environments", counts.Environments,
		"jobs", counts.Jobs,
	)
	return snapshot, nil
}

func (f *Fetcher) fetchAccountName(ctx context.Context) *string {
	f.logger.Info("Fetching account details (v2)")
	body, err := f.client.Get(ctx, "/", dbtcloud.V2, nil)
	if err != nil {
		f.logger.Warnf("Failed to fetch account name: %s", err)
		return nil
	}

	data, _ := body["data"].(map[string]any)
	if name, ok := data["name"].(string); ok {
		return &name
	}
	return nil
}

func (f *Fetcher) fetchConnections(ctx context.Context) (map[string]*model.Connection, error) {
	f.logger.Info("Fetching connections (v3)")
	out := make(map[string]*model.Connection)
	it := f.client.Paginate("/connections/", dbtcloud.V3, nil)
	for it.Next(ctx) {
		record := it.Record()

		var raw apiConnection
		if err := decode(record, &raw); err != nil {
			return nil, errors.PrefixError(err, "cannot decode connection record")
		}

		name := resolve.UnknownConnectionKey
		switch {
		case raw.Name != nil && *raw.Name != "":
			name = *raw.Name
		case raw.ID != nil:
			name = "connection_" + strconv.FormatInt(*raw.ID, 10)
		}

		key := strhelper.Slugify(name)
		warnDuplicate(f.logger, "connection", key, out)
		out[key] = &model.Connection{Key: key, ID: raw.ID, Name: raw.Name, Type: raw.Type, Details: model.Bag(record)}
	}
	if err := it.Err(); err != nil {
		return nil, errors.PrefixError(err, "cannot fetch connections")
	}
	return out, nil
}

func (f *Fetcher) fetchRepositories(ctx context.Context) (map[string]*model.Repository, error) {
	f.logger.Info("Fetching repositories (v2)")
	out := make(map[string]*model.Repository)
	it := f.client.Paginate("/repositories/", dbtcloud.V2, nil)
	for it.Next(ctx) {
		record := it.Record()

		var raw apiRepository
		if err := decode(record, &raw); err != nil {
			return nil, errors.PrefixError(err, "cannot decode repository record")
		}
		if raw.RemoteURL == nil {
			return nil, errors.Errorf(`repository record without "remote_url" (id: %v)`, record["id"])
		}

		name := *raw.RemoteURL
		if raw.Name != nil && *raw.Name != "" {
			name = *raw.Name
		}

		key := strhelper.Slugify(name)
		warnDuplicate(f.logger, "repository", key, out)
		out[key] = &model.Repository{
			Key:              key,
			ID:               raw.ID,
			RemoteURL:        *raw.RemoteURL,
			GitCloneStrategy: raw.GitCloneStrategy,
			Metadata:         model.Bag(record),
		}
	}
	if err := it.Err(); err != nil {
		return nil, errors.PrefixError(err, "cannot fetch repositories")
	}
	return out, nil
}

func (f *Fetcher) fetchProjects(ctx context.Context, globals model.Globals) ([]*model.Project, error) {
	f.logger.Info("Fetching projects (v2)")
	out := make([]*model.Project, 0)
	it := f.client.Paginate("/projects/", dbtcloud.V2, nil)
	for it.Next(ctx) {
		record := it.Record()

		var raw apiProject
		if err := decode(record, &raw); err != nil {
			return nil, errors.PrefixError(err, "cannot decode project record")
		}
		if err := requireName("project", record, raw.Name); err != nil {
			return nil, err
		}

		project := &model.Project{
			Key:           strhelper.Slugify(*raw.Name),
			ID:            raw.ID,
			Name:          *raw.Name,
			RepositoryKey: resolve.RepositoryKey(globals.Repositories, raw.RepositoryID),
			Metadata:      model.Bag(record),
		}

		var projectID int64
		if raw.ID != nil {
			projectID = *raw.ID
		}

		var err error
		if project.Environments, err = f.fetchEnvironments(ctx, projectID, globals.Connections); err != nil {
			return nil, err
		}
		if project.Jobs, err = f.fetchJobs(ctx, projectID, project.Environments); err != nil {
			return nil, err
		}
		project.EnvironmentVariables = f.fetchEnvironmentVariables(ctx, projectID)

		out = append(out, project)
		if f.onProject != nil {
			f.onProject(project)
		}
	}
	if err := it.Err(); err != nil {
		return nil, errors.PrefixError(err, "cannot fetch projects")
	}
	return out, nil
}

func (f *Fetcher) fetchEnvironments(ctx context.Context, projectID int64, connections map[string]*model.Connection) ([]*model.Environment, error) {
	f.logger.Infof("Fetching environments for project %d", projectID)
	out := make([]*model.Environment, 0)
	query := url.Values{"project_id": {strconv.FormatInt(projectID, 10)}}
	it := f.client.Paginate("/environments/", dbtcloud.V2, query)
	for it.Next(ctx) {
		record := it.Record()

		var raw apiEnvironment
		if err := decode(record, &raw); err != nil {
			return nil, errors.PrefixErrorf(err, "cannot decode environment record of project %d", projectID)
		}
		if err := requireName("environment", record, raw.Name); err != nil {
			return nil, err
		}

		credential, err := raw.credential()
		if err != nil {
			return nil, errors.PrefixErrorf(err, `cannot decode credential of environment "%s"`, *raw.Name)
		}

		envType := defaultEnvironmentType
		if raw.Type != nil && *raw.Type != "" {
			envType = *raw.Type
		}

		out = append(out, &model.Environment{
			Key:                     strhelper.Slugify(*raw.Name),
			ID:                      raw.ID,
			Name:                    *raw.Name,
			Type:                    envType,
			ConnectionKey:           resolve.ConnectionKey(connections, raw.ConnectionID),
			Credential:              credential,
			DbtVersion:              raw.DbtVersion,
			CustomBranch:            raw.CustomBranch,
			EnableModelQueryHistory: raw.EnableModelQueryHistory,
			Metadata:                model.Bag(record),
		})
	}
	if err := it.Err(); err != nil {
		return nil, errors.PrefixErrorf(err, "cannot fetch environments of project %d", projectID)
	}
	return out, nil
}

func (f *Fetcher) fetchJobs(ctx context.Context, projectID int64, environments []*model.Environment) ([]*model.Job, error) {
	f.logger.Infof("Fetching jobs for project %d", projectID)
	out := make([]*model.Job, 0)
	query := url.Values{"project_id": {strconv.FormatInt(projectID, 10)}, "order_by": {"id"}}
	it := f.client.Paginate("/jobs/", dbtcloud.V2, query)
	for it.Next(ctx) {
		record := it.Record()

		var raw apiJob
		if err := decode(record, &raw); err != nil {
			return nil, errors.PrefixErrorf(err, "cannot decode job record of project %d", projectID)
		}
		if err := requireName("job", record, raw.Name); err != nil {
			return nil, err
		}

		envID, envName := raw.environmentRef()
		steps := raw.ExecuteSteps
		if steps == nil {
			steps = []string{}
		}
		triggers := model.Bag(raw.Triggers)
		if triggers == nil {
			triggers = model.Bag{}
		}

		out = append(out, &model.Job{
			Key:            strhelper.Slugify(*raw.Name),
			ID:             raw.ID,
			Name:           *raw.Name,
			EnvironmentKey: resolve.EnvironmentKey(environments, resolve.EnvironmentRef{ID: envID, Name: envName}),
			ExecuteSteps:   steps,
			Triggers:       triggers,
			Settings:       model.Bag(record),
		})
	}
	if err := it.Err(); err != nil {
		return nil, errors.PrefixErrorf(err, "cannot fetch jobs of project %d", projectID)
	}
	return out, nil
}

// fetchEnvironmentVariables is best-effort, a failure is logged and an empty list is returned.
func (f *Fetcher) fetchEnvironmentVariables(ctx context.Context, projectID int64) []*model.EnvironmentVariable {
	f.logger.Infof("Fetching environment variables for project %d (v3)", projectID)
	path := fmt.Sprintf("/projects/%d/environment-variables/environment/", projectID)

	body, err := f.client.Get(ctx, path, dbtcloud.V3, nil)
	if err == nil {
		var variables []*model.EnvironmentVariable
		if variables, err = decodeEnvironmentVariables(body); err == nil {
			return variables
		}
	}

	f.logger.Warnf("Failed to fetch environment variables for project %d: %s", projectID, err)
	return []*model.EnvironmentVariable{}
}

// warnDuplicate logs a key collision, the later entity overwrites the previous one.
func warnDuplicate[V any](logger log.Logger, kind, key string, existing map[string]V) {
	if _, found := existing[key]; found {
		logger.Warnf(`Duplicate %s key "%s", the previous %s is overwritten`, kind, key, kind)
	}
}
