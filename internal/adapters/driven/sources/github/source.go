package github

import (
	"context"
	"slices"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
	"github.com/custodia-labs/federa/internal/logger"
)

// RepositoryMimeType is the MimeType of repository items.
const RepositoryMimeType = "application/vnd.github.repository"

// Ensure Source implements the interface.
var _ driven.Source = (*Source)(nil)

// Source exposes GitHub repositories as items. Each namespace is an owner
// login and items are identified as "owner:repo".
type Source struct {
	desc   domain.SourceDescriptor
	client *Client
}

// NewSource creates a source listing the repositories of desc.Namespaces.
func NewSource(desc domain.SourceDescriptor, client *Client) *Source {
	return &Source{desc: desc, client: client}
}

// Key returns the source key.
func (s *Source) Key() string { return s.desc.Key }

// Descriptor returns the routing descriptor.
func (s *Source) Descriptor() domain.SourceDescriptor { return s.desc }

// Fetch answers q from the GitHub REST API. Positive identifier queries
// fetch each repository directly; everything else lists the owners'
// repositories by creation time and filters them locally.
func (s *Source) Fetch(ctx context.Context, q domain.Query) ([]domain.Item, error) {
	var (
		items []domain.Item
		err   error
	)
	if sel, ok := q.Filter(domain.FieldID); ok && !sel.Negated() {
		items, err = s.lookup(ctx, sel.Values())
	} else {
		items, err = s.list(ctx, q)
	}
	if err != nil {
		return nil, err
	}

	items = slices.DeleteFunc(items, func(it domain.Item) bool { return !q.Matches(it) })
	slices.SortFunc(items, q.Sort.Compare)
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

func (s *Source) lookup(ctx context.Context, ids []string) ([]domain.Item, error) {
	var out []domain.Item
	for _, id := range ids {
		owner, name, err := domain.ParseCanonicalID(id)
		if err != nil {
			return nil, err
		}
		if !s.desc.Serves(owner) {
			continue
		}
		repo, err := s.client.GetRepository(ctx, owner, name)
		if IsNotFound(err) {
			logger.Debug("github %s: %s not found", s.desc.Key, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, toItem(owner, repo))
	}
	return out, nil
}

func (s *Source) list(ctx context.Context, q domain.Query) ([]domain.Item, error) {
	direction := "desc"
	if q.Sort.Direction == domain.Ascending {
		direction = "asc"
	}

	var out []domain.Item
	for _, owner := range s.desc.Namespaces {
		matched := 0
		err := s.client.ListOwnerRepos(ctx, owner, direction, q.Limit, func(repo *gh.Repository) bool {
			it := toItem(owner, repo)
			if q.Sort.IsSet() && pastBound(q, it) {
				return false
			}
			if q.Matches(it) {
				out = append(out, it)
				matched++
			}
			// Repositories arrive in creation order, so a full page of
			// matches cannot be displaced by later ones.
			return !q.Sort.IsSet() || q.Limit <= 0 || matched < q.Limit
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// pastBound reports whether it lies beyond the far temporal bound of q in
// listing order, after which no further repository can match.
func pastBound(q domain.Query, it domain.Item) bool {
	if q.Sort.Direction == domain.Ascending {
		return q.Before != nil && !it.CreatedAt.Before(*q.Before)
	}
	return q.After != nil && !it.CreatedAt.After(*q.After)
}

func toItem(owner string, repo *gh.Repository) domain.Item {
	login := repo.GetOwner().GetLogin()
	if login == "" {
		login = owner
	}
	it := domain.Item{
		ID:          domain.NewCanonicalID(owner, repo.GetName()),
		CreatedAt:   repo.GetCreatedAt().Time.UTC(),
		Name:        repo.GetFullName(),
		Description: repo.GetDescription(),
		MimeType:    RepositoryMimeType,
		Issuer:      login,
		Owners:      []string{login},
		URI:         repo.GetHTMLURL(),
		Attributes: map[string]any{
			"stars":    repo.GetStargazersCount(),
			"forks":    repo.GetForksCount(),
			"archived": repo.GetArchived(),
			"fork":     repo.GetFork(),
		},
	}
	if lang := repo.GetLanguage(); lang != "" {
		it.Attributes["language"] = lang
	}
	if topics := repo.Topics; len(topics) > 0 {
		it.Attributes["topics"] = slices.Clone(topics)
	}
	return it
}
