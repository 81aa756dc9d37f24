package wikimedia

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kozaktomas/player-portraits/internal/constants"
)

// validEntityID reports whether id can be used verbatim as a gjson path segment.
func validEntityID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func (c *Client) entity(ctx context.Context, id, props string) (gjson.Result, error) {
	if !validEntityID(id) {
		return gjson.Result{}, fmt.Errorf("invalid Wikidata ID %q", id)
	}

	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("format", "json")
	params.Set("ids", id)
	params.Set("props", props)

	body, err := c.getJSON(ctx, "wikidata_"+id+"_"+props, c.endpoints.WikidataAPI, params)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(body, "entities."+id), nil
}

// ImageFromWikidata reads the image property (P18) of a Wikidata entity and
// returns the Commons file URL for it.
func (c *Client) ImageFromWikidata(ctx context.Context, id string) (string, error) {
	entity, err := c.entity(ctx, id, "claims")
	if err != nil {
		return "", err
	}

	filename := entity.Get("claims.P18.0.mainsnak.datavalue.value").String()
	if filename == "" {
		return "", ErrNoImage
	}

	return c.commonsFileURL(filename), nil
}

func (c *Client) commonsFileURL(filename string) string {
	name := strings.ReplaceAll(filename, " ", "_")
	return c.endpoints.Commons + "/wiki/Special:FilePath/" + url.PathEscape(name)
}

// EnwikiTitle returns the title of the English Wikipedia article linked from a Wikidata entity.
func (c *Client) EnwikiTitle(ctx context.Context, id string) (string, error) {
	entity, err := c.entity(ctx, id, "sitelinks")
	if err != nil {
		return "", err
	}

	title := entity.Get("sitelinks.enwiki.title").String()
	if title == "" {
		return "", ErrNoArticle
	}
	return title, nil
}

// MainImage returns the lead image of a Wikipedia article. The REST summary
// is asked first; when it fails or has no image, the pageimages API is used.
func (c *Client) MainImage(ctx context.Context, title string) (string, error) {
	src, err := c.summaryImage(ctx, title)
	if err == nil && src != "" {
		return src, nil
	}
	if err != nil {
		c.logger.Warn("REST API failed, trying MediaWiki API", "title", title, "error", err)
	}

	src, err = c.pageImage(ctx, title)
	if err != nil {
		return "", err
	}
	if src == "" {
		return "", ErrNoImage
	}
	return src, nil
}

func (c *Client) summaryImage(ctx context.Context, title string) (string, error) {
	endpoint := c.endpoints.WikipediaREST + "/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	body, err := c.getJSON(ctx, "summary_"+title, endpoint, nil)
	if err != nil {
		return "", err
	}

	if src := gjson.GetBytes(body, "originalimage.source").String(); src != "" {
		return src, nil
	}
	return gjson.GetBytes(body, "thumbnail.source").String(), nil
}

func (c *Client) pageImage(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("titles", title)
	params.Set("prop", "pageimages")
	params.Set("pithumbsize", strconv.Itoa(constants.PortraitThumbSize))
	params.Set("pilicense", "any")

	body, err := c.getJSON(ctx, "pageimages_"+title, c.endpoints.WikipediaAPI, params)
	if err != nil {
		return "", err
	}

	var src string
	gjson.GetBytes(body, "query.pages").ForEach(func(_, page gjson.Result) bool {
		src = page.Get("thumbnail.source").String()
		return src == ""
	})
	return src, nil
}

// ImageURL finds a portrait URL for a Wikidata entity: the entity's own image
// first, then the lead image of its English Wikipedia article.
func (c *Client) ImageURL(ctx context.Context, id string) (string, error) {
	src, err := c.ImageFromWikidata(ctx, id)
	if err == nil {
		return src, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if !errors.Is(err, ErrNoImage) {
		c.logger.Warn("direct Wikidata image fetch failed", "wikidata_id", id, "error", err)
	}

	title, err := c.EnwikiTitle(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNoArticle) {
			c.logger.Error("could not fetch Wikipedia page", "wikidata_id", id, "error", err)
		}
		return "", ErrNoImage
	}

	src, err = c.MainImage(ctx, title)
	if err != nil {
		if !errors.Is(err, ErrNoImage) {
			c.logger.Error("MediaWiki API failed", "title", title, "error", err)
		}
		return "", ErrNoImage
	}
	return src, nil
}
