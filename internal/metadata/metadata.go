// Package metadata holds the observable stream metadata for the active
// playback source and the mapping from backend tag keys to canonical fields.
package metadata

import "sync"

// Field names a canonical metadata property.
type Field string

const (
	FieldTitle           Field = "title"
	FieldGenre           Field = "genre"
	FieldOrganisation    Field = "organisation"
	FieldExtendedComment Field = "extendedComment"
	FieldChannelMode     Field = "channelMode"
	FieldHomepage        Field = "homepage"
	FieldAudioCodec      Field = "audioCodec"
	FieldEncoder         Field = "encoder"
	FieldEncoderVersion  Field = "encoderVersion"
	FieldNominalBitrate  Field = "nominalBitrate"
	FieldBitrate         Field = "bitrate"
	FieldContainerFormat Field = "containerFormat"
	FieldCountry         Field = "country"
	FieldCity            Field = "city"
)

// AllFields lists every canonical field, in the order Reset clears them.
var AllFields = []Field{
	FieldTitle, FieldGenre, FieldOrganisation, FieldExtendedComment,
	FieldChannelMode, FieldHomepage, FieldAudioCodec, FieldEncoder,
	FieldEncoderVersion, FieldNominalBitrate, FieldBitrate,
	FieldContainerFormat, FieldCountry, FieldCity,
}

// tagKeyFields maps backend-specific tag keys to canonical fields. Keys not
// present here are ignored.
var tagKeyFields = map[string]Field{
	"title":            FieldTitle,
	"genre":            FieldGenre,
	"organization":     FieldOrganisation,
	"organisation":     FieldOrganisation,
	"extended-comment": FieldExtendedComment,
	"channel-mode":     FieldChannelMode,
	"homepage":         FieldHomepage,
	"audio-codec":      FieldAudioCodec,
	"encoder":          FieldEncoder,
	"encoder-version":  FieldEncoderVersion,
	"nominal-bitrate":  FieldNominalBitrate,
	"bitrate":          FieldBitrate,
	"container-format": FieldContainerFormat,
	"country":          FieldCountry,
	"city":             FieldCity,
}

// CanonicalField translates a backend tag key to its canonical field. The
// second return value is false for unknown keys.
func CanonicalField(key string) (Field, bool) {
	f, ok := tagKeyFields[key]
	return f, ok
}

// Change describes a single field update delivered to listeners.
type Change struct {
	Field Field
	Value string
}

// Listener receives field-level change notifications. Listeners are invoked
// synchronously and must not block; they should treat the callback as a
// notification and defer anything heavier.
type Listener func(Change)

// Observable holds the most recent metadata values provided by the current
// stream, plus the URI of the stream that produced them. Values are reset to
// empty whenever the active source changes or stops. Safe for concurrent use.
type Observable struct {
	mu        sync.Mutex
	streamURI string
	values    map[Field]string

	nextID    int
	listeners map[int]Listener
}

// NewObservable returns an empty Observable.
func NewObservable() *Observable {
	return &Observable{
		values:    make(map[Field]string),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener for field changes and returns a function
// that removes it again.
func (o *Observable) Subscribe(l Listener) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = l
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// Set updates a field and notifies listeners. Notification is unconditional:
// repeated identical values still notify, matching how tag events arrive.
func (o *Observable) Set(field Field, value string) {
	o.mu.Lock()
	o.values[field] = value
	listeners := o.listenersLocked()
	o.mu.Unlock()

	for _, l := range listeners {
		l(Change{Field: field, Value: value})
	}
}

// Get returns the current value of a field, empty when unset.
func (o *Observable) Get(field Field) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.values[field]
}

// Snapshot returns a copy of all current field values.
func (o *Observable) Snapshot() map[Field]string {
	o.mu.Lock()
	defer o.mu.Unlock()

	result := make(map[Field]string, len(o.values))
	for f, v := range o.values {
		result[f] = v
	}
	return result
}

// SetStreamURI records which stream the metadata belongs to.
func (o *Observable) SetStreamURI(uri string) {
	o.mu.Lock()
	o.streamURI = uri
	o.mu.Unlock()
}

// StreamURI returns the URI of the stream the current values came from.
func (o *Observable) StreamURI() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.streamURI
}

// Reset clears every field to empty and notifies listeners for each.
func (o *Observable) Reset() {
	for _, f := range AllFields {
		o.Set(f, "")
	}
}

// listenersLocked copies the listener set so notification can happen outside
// the mutex.
func (o *Observable) listenersLocked() []Listener {
	result := make([]Listener, 0, len(o.listeners))
	for _, l := range o.listeners {
		result = append(result, l)
	}
	return result
}
