package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/matzehuels/aidiagram/pkg/cache"
	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
	"github.com/matzehuels/aidiagram/pkg/observability"
)

// catalogKeyType labels catalog events in cache metrics.
const catalogKeyType = "catalog"

// ChatFamily is the substring that marks a catalog entry as chat-capable.
const ChatFamily = "gpt"

// DefaultModels is offered when the catalog cannot be read.
var DefaultModels = []string{
	"gpt-3.5-turbo",
	"gpt-4",
	"gpt-4-turbo",
	"gpt-4o",
	"gpt-4o-mini",
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels returns the chat-capable models offered by the service merged
// with the configured model, deduplicated and sorted.
//
// It never fails: when the catalog cannot be read for any reason, including a
// missing credential, [DefaultModels] is used instead.
func (c *Client) ListModels(ctx context.Context) []string {
	ids, err := c.catalog(ctx)
	if err != nil {
		c.logger().Debug("model catalog unavailable, using defaults", "err", err)
		ids = DefaultModels
	}
	return mergeModels(ids, c.Model)
}

// catalog returns the filtered catalog, from cache when fresh.
func (c *Client) catalog(ctx context.Context) ([]string, error) {
	if c.APIKey == "" {
		return nil, aerrors.New(aerrors.ErrCodeConfiguration, "no API key configured")
	}

	key := cache.CatalogKey(c.BaseURL, c.APIKey)
	if c.Cache != nil {
		if data, ok, _ := c.Cache.Get(ctx, key); ok {
			var ids []string
			if json.Unmarshal(data, &ids) == nil && len(ids) > 0 {
				observability.Cache().OnCacheHit(ctx, catalogKeyType)
				c.logger().Debug("model catalog from cache", "models", len(ids))
				return ids, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, catalogKeyType)
	}

	hc := c.CatalogHTTP
	if hc == nil {
		hc = c.HTTP
	}
	data, err := c.do(ctx, hc, http.MethodGet, c.BaseURL+modelsPath, nil)
	if err != nil {
		return nil, err
	}

	var list modelList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, aerrors.Wrap(aerrors.ErrCodeMalformedResponse, err, "decode model catalog")
	}
	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		if strings.Contains(m.ID, ChatFamily) {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return nil, aerrors.New(aerrors.ErrCodeMalformedResponse, "model catalog has no %s models", ChatFamily)
	}

	if c.Cache != nil {
		if encoded, err := json.Marshal(ids); err == nil {
			if err := c.Cache.Set(ctx, key, encoded, cache.TTLCatalog); err != nil {
				c.logger().Warn("could not cache model catalog", "err", err)
			} else {
				observability.Cache().OnCacheSet(ctx, catalogKeyType, len(encoded))
			}
		}
	}
	return ids, nil
}

func mergeModels(ids []string, configured string) []string {
	seen := make(map[string]bool, len(ids)+1)
	out := make([]string, 0, len(ids)+1)
	for _, id := range append(append([]string(nil), ids...), configured) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
