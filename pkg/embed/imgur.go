package embed

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// ImgurScriptURL is the script that hydrates imgur placeholders.
const ImgurScriptURL = "//s.imgur.com/min/embed.js"

// imgurGlobal is the global the imgur script defines.
const imgurGlobal = "imgurEmbed"

var errImgurGlobalMissing = errors.New("the Imgur post failed to load: imgurEmbed is not defined")

var imgurTemplate = template.Must(template.New("imgur").Parse(
	`<blockquote class="imgur-embed-pub" lang="en" data-id="{{.DataID}}" href="{{.Href}}"></blockquote>`))

// Imgur renders imgur post and album embeds.
type Imgur struct {
	// Script overrides ImgurScriptURL, mainly for tests and mirrors.
	Script string
}

func (Imgur) Name() string { return "imgur" }

func (i Imgur) ScriptURL() string {
	if i.Script != "" {
		return i.Script
	}
	return ImgurScriptURL
}

// Bind checks that the script defines the imgurEmbed global.
func (Imgur) Bind(script *Script) error {
	if script == nil || !bytes.Contains(script.Body, []byte(imgurGlobal)) {
		return errImgurGlobalMissing
	}
	return nil
}

// Placeholder builds the blockquote the imgur script replaces. Albums use
// an "a/" prefixed data id.
func (i Imgur) Placeholder(data Data) (Placeholder, error) {
	postID := strings.Trim(data.PostID, "/ ")
	if postID == "" {
		return Placeholder{}, fmt.Errorf("imgur embed: postID is required")
	}
	dataID := postID
	if data.IsAlbum {
		dataID = "a/" + postID
	}

	ph := Placeholder{
		Tag:       "blockquote",
		Class:     "imgur-embed-pub",
		Lang:      "en",
		DataID:    dataID,
		Href:      "imgur.com/" + postID,
		ScriptURL: i.ScriptURL(),
		Provider:  i.Name(),
	}

	var buf bytes.Buffer
	if err := imgurTemplate.Execute(&buf, ph); err != nil {
		return Placeholder{}, fmt.Errorf("render imgur placeholder: %w", err)
	}
	ph.HTML = template.HTML(buf.String())
	return ph, nil
}

// NewDefaultRegistry returns a registry with the built-in providers.
func NewDefaultRegistry(loader *Loader) *Registry {
	r := NewRegistry(loader, loader.logger)
	r.Register(Imgur{})
	return r
}
