package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v80/github"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/repo-explorer/internal/domain"
	"github.com/naka-gawa/repo-explorer/internal/ratelimit"
)

// maxContributors is how many top contributors are fetched for a repository.
const maxContributors = 10

// DetailsClient fetches everything shown for a single repository.
type DetailsClient struct {
	restClient *github.Client
	limiter    *ratelimit.Limiter
	logger     *log.Logger
}

// NewDetailsClient creates a DetailsClient. limiter must be dedicated to the
// core API category, not the search one.
func NewDetailsClient(restClient *github.Client, limiter *ratelimit.Limiter, logger *log.Logger) *DetailsClient {
	return &DetailsClient{
		restClient: restClient,
		limiter:    limiter,
		logger:     logger,
	}
}

// Fetch loads repository metadata, top contributors and the README concurrently.
// A repository without contributors or README is not an error.
func (c *DetailsClient) Fetch(ctx context.Context, owner, name string) (domain.RepositoryDetail, error) {
	c.logger.Debug("fetching repository details", "owner", owner, "name", name)

	var (
		repo         *github.Repository
		contributors []domain.Contributor
		readme       string
	)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		repo, err = c.getRepository(egCtx, owner, name)
		return err
	})

	eg.Go(func() error {
		var err error
		contributors, err = c.listContributors(egCtx, owner, name)
		return err
	})

	eg.Go(func() error {
		var err error
		readme, err = c.getReadme(egCtx, owner, name)
		return err
	})

	if err := eg.Wait(); err != nil {
		return domain.RepositoryDetail{}, err
	}

	summary, err := toSummary(repo)
	if err != nil {
		return domain.RepositoryDetail{}, fmt.Errorf("repository %s/%s: %w", owner, name, err)
	}

	return domain.RepositoryDetail{
		Summary:       summary,
		Owner:         repo.GetOwner().GetLogin(),
		Topics:        repo.Topics,
		License:       repo.GetLicense().GetName(),
		DefaultBranch: repo.GetDefaultBranch(),
		Watchers:      repo.GetSubscribersCount(),
		SizeKB:        repo.GetSize(),
		Fork:          repo.GetFork(),
		Archived:      repo.GetArchived(),
		Contributors:  contributors,
		Readme:        readme,
	}, nil
}

func (c *DetailsClient) getRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	if _, err := c.limiter.Acquire(); err != nil {
		return nil, err
	}
	repo, resp, err := c.restClient.Repositories.Get(ctx, owner, name)
	updateRateLimit(c.limiter, resp)
	if err != nil {
		return nil, wrapError(ctx, resp, err, "get repository")
	}
	return repo, nil
}

func (c *DetailsClient) listContributors(ctx context.Context, owner, name string) ([]domain.Contributor, error) {
	if _, err := c.limiter.Acquire(); err != nil {
		return nil, err
	}
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: maxContributors}}
	users, resp, err := c.restClient.Repositories.ListContributors(ctx, owner, name, opts)
	updateRateLimit(c.limiter, resp)
	if err != nil {
		err = wrapError(ctx, resp, err, "list contributors")
		if isNotFound(err) {
			return []domain.Contributor{}, nil
		}
		return nil, err
	}

	contributors := make([]domain.Contributor, 0, len(users))
	for _, u := range users {
		contributors = append(contributors, domain.Contributor{
			Login:         u.GetLogin(),
			URL:           u.GetHTMLURL(),
			Contributions: u.GetContributions(),
		})
	}
	return contributors, nil
}

func (c *DetailsClient) getReadme(ctx context.Context, owner, name string) (string, error) {
	if _, err := c.limiter.Acquire(); err != nil {
		return "", err
	}
	content, resp, err := c.restClient.Repositories.GetReadme(ctx, owner, name, nil)
	updateRateLimit(c.limiter, resp)
	if err != nil {
		err = wrapError(ctx, resp, err, "get readme")
		if isNotFound(err) {
			c.logger.Debug("repository has no readme", "owner", owner, "name", name)
			return "", nil
		}
		return "", err
	}
	text, err := content.GetContent()
	if err != nil {
		return "", &domain.MalformedResponseError{Err: fmt.Errorf("decode readme: %w", err)}
	}
	return text, nil
}

func isNotFound(err error) bool {
	var upstream *domain.UpstreamError
	return errors.As(err, &upstream) && upstream.Status == http.StatusNotFound
}
