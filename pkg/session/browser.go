package session

import (
	"strings"

	"github.com/soundctl/livebridge/pkg/protocol"
)

// BrowserItem is a node in the device browser: a category, a folder or a
// loadable device/preset.
type BrowserItem struct {
	Name       string         `json:"name"`
	URI        string         `json:"uri,omitempty"`
	IsFolder   bool           `json:"is_folder"`
	IsDevice   bool           `json:"is_device"`
	IsLoadable bool           `json:"is_loadable"`
	Children   []*BrowserItem `json:"children,omitempty"`
}

// Browser is the device browser exposed by the host application.
type Browser struct {
	Categories []*BrowserItem
}

// BrowserListing is the result of listing items at a browser path.
type BrowserListing struct {
	Path  string         `json:"path"`
	Name  string         `json:"name"`
	URI   string         `json:"uri,omitempty"`
	Items []*BrowserItem `json:"items"`
}

// DeviceLoaded is the result of loading a browser item onto a track.
type DeviceLoaded struct {
	Loaded    bool   `json:"loaded"`
	ItemName  string `json:"item_name"`
	TrackName string `json:"track_name"`
	URI       string `json:"uri"`
}

func device(name, uri string) *BrowserItem {
	return &BrowserItem{Name: name, URI: uri, IsDevice: true, IsLoadable: true}
}

// defaultBrowser builds the stock category tree. The host application would
// populate this from its installed content; the bridge only needs a stable
// shape to navigate.
func defaultBrowser() *Browser {
	return &Browser{Categories: []*BrowserItem{
		{Name: "Instruments", URI: "query:Instruments", IsFolder: true, Children: []*BrowserItem{
			device("Analog", "query:Instruments#Analog"),
			device("Operator", "query:Instruments#Operator"),
			device("Wavetable", "query:Instruments#Wavetable"),
		}},
		{Name: "Drums", URI: "query:Drums", IsFolder: true, Children: []*BrowserItem{
			device("Drum Rack", "query:Drums#Drum%20Rack"),
			device("808 Core Kit", "query:Drums#808%20Core%20Kit"),
		}},
		{Name: "Audio Effects", URI: "query:AudioFx", IsFolder: true, Children: []*BrowserItem{
			device("Reverb", "query:AudioFx#Reverb"),
			device("Compressor", "query:AudioFx#Compressor"),
			device("EQ Eight", "query:AudioFx#EQ%20Eight"),
		}},
		{Name: "MIDI Effects", URI: "query:MidiFx", IsFolder: true, Children: []*BrowserItem{
			device("Arpeggiator", "query:MidiFx#Arpeggiator"),
			device("Chord", "query:MidiFx#Chord"),
		}},
	}}
}

// BrowserTree returns the category tree, optionally filtered to one category.
func (s *Session) BrowserTree(category string) []*BrowserItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if category == "" || category == "all" {
		return s.browser.Categories
	}
	for _, root := range s.browser.Categories {
		if strings.EqualFold(root.Name, category) {
			return []*BrowserItem{root}
		}
	}
	return nil
}

// BrowserItemsAtPath lists the children at a slash-separated browser path,
// e.g. "Instruments" or "Drums/Drum Rack". Path segments match case
// insensitively.
func (s *Session) BrowserItemsAtPath(path string) (*BrowserListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parts := strings.Split(path, "/")
	var current *BrowserItem
	for _, root := range s.browser.Categories {
		if strings.EqualFold(root.Name, parts[0]) {
			current = root
			break
		}
	}
	if current == nil {
		return nil, protocol.Errorf(protocol.CodeInvalidArgument, "unknown browser category: %s", parts[0])
	}

	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		var next *BrowserItem
		for _, child := range current.Children {
			if strings.EqualFold(child.Name, part) {
				next = child
				break
			}
		}
		if next == nil {
			return nil, protocol.Errorf(protocol.CodeInvalidArgument, "browser path part not found: %s", part)
		}
		current = next
	}

	items := current.Children
	if items == nil {
		items = []*BrowserItem{}
	}
	return &BrowserListing{Path: path, Name: current.Name, URI: current.URI, Items: items}, nil
}

// LoadBrowserItem loads the item with the given URI as a device on a track.
func (s *Session) LoadBrowserItem(trackIndex int, uri string) (*DeviceLoaded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := s.trackAt(trackIndex)
	if err != nil {
		return nil, err
	}
	item := findItemByURI(s.browser.Categories, uri)
	if item == nil {
		return nil, protocol.Errorf(protocol.CodeInvalidArgument, "browser item with URI %q not found", uri)
	}
	if !item.IsLoadable {
		return nil, protocol.Errorf(protocol.CodePreconditionFailed, "browser item %q is not loadable", item.Name)
	}

	track.Devices = append(track.Devices, &Device{
		Name:      item.Name,
		ClassName: item.Name,
		Kind:      deviceKindForURI(uri),
		Enabled:   true,
	})
	return &DeviceLoaded{Loaded: true, ItemName: item.Name, TrackName: track.Name, URI: uri}, nil
}

func findItemByURI(items []*BrowserItem, uri string) *BrowserItem {
	for _, item := range items {
		if item.URI == uri {
			return item
		}
		if found := findItemByURI(item.Children, uri); found != nil {
			return found
		}
	}
	return nil
}

func deviceKindForURI(uri string) string {
	switch {
	case strings.HasPrefix(uri, "query:Instruments"):
		return "instrument"
	case strings.HasPrefix(uri, "query:Drums"):
		return "drum_machine"
	case strings.HasPrefix(uri, "query:AudioFx"):
		return "audio_effect"
	case strings.HasPrefix(uri, "query:MidiFx"):
		return "midi_effect"
	}
	return "unknown"
}
