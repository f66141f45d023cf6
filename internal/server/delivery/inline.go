package delivery

import (
	"context"
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/webmail/internal/filex"
)

var (
	imgDataRe    = regexp.MustCompile(`<img\b[^>]*\ssrc="(data:image/[^"]*)"[^>]*>`)
	imgTagRe     = regexp.MustCompile(`<img\b[^>]*>`)
	inlineIDRe   = regexp.MustCompile(`data-inline-id="([^"]*)"`)
	altRe        = regexp.MustCompile(`\salt="([^"]*)"`)
	imageSubtype = regexp.MustCompile(`^data:image/([^;,]+)`)
	// src attributes only; the leading space keeps data-src and the like out
	srcAttrRe     = regexp.MustCompile(`(\s)src="[^"]*"`)
	anyDataSrcRe  = regexp.MustCompile(`(\s)src="data:image/[^"]+"`)
	dataPayloadRe = regexp.MustCompile(`(?s)^data:([^;]+);base64,(.+)$`)
)

// discoverInlineImages synthesises an InlineImage per data: URL <img> tag.
func (p *Pipeline) discoverInlineImages(ctx context.Context, html string) []InlineImage {
	matches := imgDataRe.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		return nil
	}

	ts := strconv.FormatInt(p.now().UnixMilli(), 10)
	images := make([]InlineImage, 0, len(matches))
	for i, m := range matches {
		tag, dataURL := m[0], m[1]

		id := "extracted-img-" + ts + "-" + strconv.Itoa(i)
		if idm := inlineIDRe.FindStringSubmatch(tag); idm != nil && idm[1] != "" {
			id = idm[1]
		}

		ext := imageExtension(dataURL)
		filename := "inline-image-" + strconv.Itoa(i) + "." + ext
		if am := altRe.FindStringSubmatch(tag); am != nil && am[1] != "" {
			filename = filex.SanitizeName(am[1] + "." + ext)
		}

		images = append(images, InlineImage{ID: id, DataURL: dataURL, Filename: filename})
	}

	p.logger.Debug(ctx, "inline images discovered", "count", len(images))
	return images
}

func imageExtension(dataURL string) string {
	m := imageSubtype.FindStringSubmatch(dataURL)
	if m == nil {
		return "jpg"
	}
	ext, _, _ := strings.Cut(m[1], "+")
	return ext
}

// rewriteInlineImages points every image at cid:inline-image-<i>@domain and
// returns the matching inline parts. Images whose payload cannot be decoded
// are skipped.
func (p *Pipeline) rewriteInlineImages(ctx context.Context, html string, images []InlineImage) (string, []Part) {
	var parts []Part
	rewritten := 0

	for i, img := range images {
		cid := "inline-image-" + strconv.Itoa(i) + "@" + p.cidDomain
		src := `src="cid:` + cid + `"`

		var ok bool
		html, ok = replaceByInlineID(html, img.ID, src)
		if !ok && img.DataURL != "" {
			literal := regexp.MustCompile(`(\s)src="` + regexp.QuoteMeta(img.DataURL) + `"`)
			html, ok = replaceSrc(html, literal, src)
		}
		if !ok {
			html, ok = replaceSrc(html, anyDataSrcRe, src)
		}
		if ok {
			rewritten++
		} else {
			p.logger.Warn(ctx, "inline image reference not found in html", "image_id", img.ID, "cid", cid)
		}

		part, err := inlinePart(img, cid, i)
		if err != nil {
			p.logger.Error(ctx, "inline image payload undecodable", "image_id", img.ID, "error", err)
			continue
		}
		parts = append(parts, part)
	}

	if len(images) > 0 && rewritten == 0 {
		p.logger.Warn(ctx, "no inline images were rewritten", "images", len(images))
	}
	if strings.Contains(html, "data:image") {
		p.logger.Warn(ctx, "html still contains data:image urls after cid rewrite")
	}
	return html, parts
}

// replaceByInlineID rewrites src on the first <img> carrying
// data-inline-id="id".
func replaceByInlineID(html, id, src string) (string, bool) {
	if id == "" {
		return html, false
	}
	marker := `data-inline-id="` + id + `"`

	for _, loc := range imgTagRe.FindAllStringIndex(html, -1) {
		tag := html[loc[0]:loc[1]]
		if !strings.Contains(tag, marker) {
			continue
		}
		tag, ok := replaceSrc(tag, srcAttrRe, src)
		if !ok {
			continue
		}
		return html[:loc[0]] + tag + html[loc[1]:], true
	}
	return html, false
}

// replaceSrc swaps the first attribute matched by re for src. re must
// capture the whitespace before the attribute name as group 1.
func replaceSrc(s string, re *regexp.Regexp, src string) (string, bool) {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s, false
	}
	return s[:loc[3]] + src + s[loc[1]:], true
}

func inlinePart(img InlineImage, cid string, i int) (Part, error) {
	m := dataPayloadRe.FindStringSubmatch(img.DataURL)
	if m == nil {
		return Part{}, errMalformedDataURL
	}
	data, err := base64.StdEncoding.DecodeString(stripWhitespace(m[2]))
	if err != nil {
		return Part{}, err
	}

	filename := img.Filename
	if filename == "" {
		filename = "inline-image-" + strconv.Itoa(i) + "." + imageExtension(img.DataURL)
	}
	return Part{Filename: filename, ContentType: m[1], ContentID: cid, Inline: true, Data: data}, nil
}

func regularPart(a Attachment) (Part, error) {
	data := a.Content
	if data == nil && a.ContentBase64 != "" {
		var err error
		data, err = base64.StdEncoding.DecodeString(stripWhitespace(a.ContentBase64))
		if err != nil {
			return Part{}, &attachmentError{filename: a.Filename, err: err}
		}
	}

	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return Part{Filename: filex.SanitizeName(a.Filename), ContentType: ct, Data: data}, nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}
