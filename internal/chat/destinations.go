package chat

import (
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// FallbackChannel receives updates of devices without a dedicated channel.
const FallbackChannel = "other_phones"

var ErrNoDestination = goerr.New("no destination channel for device")

// Channel is a chat channel as reported by the platform.
type Channel struct {
	ID       string
	Name     string
	Category string
}

type destination struct {
	key     string
	channel Channel
}

// Destinations maps normalized device family names to channels. Lookup order
// is the channel-name order the map was built with.
type Destinations struct {
	entries []destination
}

// NormalizeChannelName turns "redmi_note_series" into "redmi note".
func NormalizeChannelName(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, "_series", ""), "_", " ")
}

// NewDestinations keeps the channels of category, sorted by name.
func NewDestinations(channels []Channel, category string) *Destinations {
	sorted := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.Category == category {
			sorted = append(sorted, ch)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	d := &Destinations{}
	index := map[string]int{}
	for _, ch := range sorted {
		key := NormalizeChannelName(ch.Name)
		if i, ok := index[key]; ok {
			d.entries[i].channel = ch
			continue
		}
		index[key] = len(d.entries)
		d.entries = append(d.entries, destination{key: key, channel: ch})
	}
	return d
}

// Len returns the number of known destinations.
func (d *Destinations) Len() int {
	return len(d.entries)
}

// Keys returns the normalized keys in lookup order.
func (d *Destinations) Keys() []string {
	keys := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// Resolve picks the first channel whose key prefixes the lowercased device
// name, or the fallback channel.
func (d *Destinations) Resolve(deviceName string) (Channel, error) {
	device := strings.ToLower(deviceName)
	for _, e := range d.entries {
		if strings.HasPrefix(device, e.key) {
			return e.channel, nil
		}
	}

	fallback := NormalizeChannelName(FallbackChannel)
	for _, e := range d.entries {
		if e.key == fallback {
			return e.channel, nil
		}
	}
	return Channel{}, goerr.Wrap(ErrNoDestination, "resolve channel", goerr.V("device", deviceName))
}
