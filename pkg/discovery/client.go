package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/errgroup"

	"github.com/testbed-portal/discovery-finder/pkg/logger"
	"github.com/testbed-portal/discovery-finder/pkg/types"
)

var ErrStatus = errors.New("unexpected response status")

// Client reads the reference API: sites, the clusters of each site and the
// nodes of each cluster. Every list endpoint answers {"items": [...]}.
type Client struct {
	BaseURL     string
	HTTP        *http.Client
	Concurrency int
}

type listResponse struct {
	Items []types.Record `json:"items"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:     baseURL,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		Concurrency: 8,
	}
}

func (c *Client) list(ctx context.Context, elem ...string) ([]types.Record, error) {
	u, err := url.JoinPath(c.BaseURL, elem...)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, u, res.StatusCode)
	}
	var body listResponse
	if err := sonic.ConfigDefault.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s: %w", u, err)
	}
	return body.Items, nil
}

func (c *Client) Sites(ctx context.Context) ([]types.Record, error) {
	return c.list(ctx, "sites")
}

func (c *Client) Clusters(ctx context.Context, site string) ([]types.Record, error) {
	return c.list(ctx, "sites", site, "clusters")
}

func (c *Client) Nodes(ctx context.Context, site, cluster string) ([]types.Record, error) {
	return c.list(ctx, "sites", site, "clusters", cluster, "nodes")
}

type clusterRef struct {
	site    string
	cluster string
}

// FetchAll walks sites, clusters and nodes. Requests of one level run
// concurrently and all of them finish before the next level starts. The
// first failure cancels the rest. Nodes come back in site then cluster
// order, tagged with their site and cluster when the API left those out.
func (c *Client) FetchAll(ctx context.Context) ([]types.Record, error) {
	sites, err := c.Sites(ctx)
	if err != nil {
		return nil, err
	}

	clustersBySite := make([][]clusterRef, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit())
	for i, site := range sites {
		siteId := string(site.Uid())
		if siteId == "" {
			continue
		}
		g.Go(func() error {
			clusters, err := c.Clusters(gctx, siteId)
			if err != nil {
				return err
			}
			refs := make([]clusterRef, 0, len(clusters))
			for _, cl := range clusters {
				if id := string(cl.Uid()); id != "" {
					refs = append(refs, clusterRef{site: siteId, cluster: id})
				}
			}
			clustersBySite[i] = refs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refs := make([]clusterRef, 0)
	for _, r := range clustersBySite {
		refs = append(refs, r...)
	}
	nodesByCluster := make([][]types.Record, len(refs))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(c.limit())
	for i, ref := range refs {
		g.Go(func() error {
			nodes, err := c.Nodes(gctx, ref.site, ref.cluster)
			if err != nil {
				return err
			}
			for _, n := range nodes {
				annotate(n, "site", ref.site)
				annotate(n, "cluster", ref.cluster)
			}
			nodesByCluster[i] = nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ret := make([]types.Record, 0)
	for _, nodes := range nodesByCluster {
		ret = append(ret, nodes...)
	}
	logger.Info().
		Str("component", "discovery").
		Int("sites", len(sites)).
		Int("clusters", len(refs)).
		Int("nodes", len(ret)).
		Msg("fetched reference api")
	return ret, nil
}

func (c *Client) limit() int {
	if c.Concurrency <= 0 {
		return -1
	}
	return c.Concurrency
}

func annotate(r types.Record, key, value string) {
	if r == nil {
		return
	}
	if _, ok := r[key]; !ok {
		r[key] = value
	}
}
