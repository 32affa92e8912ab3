package hls

import (
	"bufio"
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const magicLine = "#EXTM3U"

var attrRegex = regexp.MustCompile(`([A-Za-z0-9_-]+)=("[^"]*"|[^,]*)`)

// Parse reads a manifest body and classifies it as either a Master
// (stream-inf table) or a MediaPlaylist (segment list), resolving all
// relative URIs against base. Unknown tags are skipped, matching the
// teacher's "uncaught attribute" tolerance in parseLine.
func Parse(body []byte, base *url.URL) (*Master, *MediaPlaylist, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		return nil, nil, &ParseError{Reason: "empty body"}
	}
	firstLine := strings.TrimSpace(scanner.Text())
	if firstLine != magicLine {
		return nil, nil, &ParseError{Reason: "missing #EXTM3U magic line"}
	}

	var (
		isMaster             bool
		isMedia              bool
		master               Master
		media                MediaPlaylist
		pendingVariant       *Variant
		pendingSegment       *Segment
		sawTargetDuration    bool
		discontinuityPending bool
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			isMaster = true
			v := parseStreamInf(line)
			pendingVariant = &v

		case strings.HasPrefix(line, "#EXTINF:"):
			isMedia = true
			s := parseExtInf(line)
			if discontinuityPending {
				s.Discontinuity = true
				discontinuityPending = false
			}
			pendingSegment = &s

		case line == "#EXT-X-DISCONTINUITY":
			discontinuityPending = true

		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			isMedia = true
			sawTargetDuration = true
			if n, err := strconv.Atoi(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:")); err == nil {
				media.TargetDurationSec = n
			}

		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			isMedia = true
			if n, err := strconv.Atoi(strings.TrimPrefix(line, "#EXT-X-MEDIA-SEQUENCE:")); err == nil {
				media.MediaSequence = n
			}

		case line == "#EXT-X-ENDLIST":
			isMedia = true
			media.IsEndlist = true

		case strings.HasPrefix(line, "#"):
			// Unknown tag: tolerated, skipped.
			continue

		default:
			resolved := resolveURI(line, base)
			if pendingVariant != nil {
				pendingVariant.AbsoluteURI = resolved
				master.Variants = append(master.Variants, *pendingVariant)
				pendingVariant = nil
			} else if pendingSegment != nil {
				pendingSegment.AbsoluteURI = resolved
				media.Segments = append(media.Segments, *pendingSegment)
				pendingSegment = nil
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, &ParseError{Reason: "scan error: " + err.Error()}
	}

	if isMaster && len(master.Variants) > 0 {
		return &master, nil, nil
	}
	if isMedia {
		if !sawTargetDuration {
			return nil, nil, &ParseError{Reason: "media playlist missing #EXT-X-TARGETDURATION"}
		}
		return nil, &media, nil
	}

	return nil, nil, &ParseError{Reason: "no recognizable master or media tags found"}
}

func parseStreamInf(line string) Variant {
	attrs := strings.TrimPrefix(line, "#EXT-X-STREAM-INF:")
	v := Variant{}
	for _, m := range attrRegex.FindAllStringSubmatch(attrs, -1) {
		key := strings.ToUpper(strings.TrimSpace(m[1]))
		val := strings.Trim(strings.TrimSpace(m[2]), `"`)
		switch key {
		case "BANDWIDTH":
			if n, err := strconv.Atoi(val); err == nil {
				v.Bandwidth = n
			}
		case "RESOLUTION":
			v.Resolution = val
		case "CODECS":
			v.Codecs = val
		}
	}
	return v
}

func parseExtInf(line string) Segment {
	attrs := strings.TrimPrefix(line, "#EXTINF:")
	// Format is "<duration>,<title>"; title is discarded (not part of
	// the spec's data model).
	durStr := attrs
	if idx := strings.Index(attrs, ","); idx >= 0 {
		durStr = attrs[:idx]
	}
	dur, _ := strconv.ParseFloat(strings.TrimSpace(durStr), 64)
	return Segment{DurationSec: dur}
}

func resolveURI(raw string, base *url.URL) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.IsAbs() || base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
