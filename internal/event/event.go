// Package event defines the runtime events handled by the indexer: a topic plus
// an ordered set of uniquely named properties.
package event

// TimestampProperty is the well-known property holding the event time in
// milliseconds since the epoch.
const TimestampProperty = "timestamp"

// Property is a single named value of an event.
type Property struct {
	Name  string
	Value Value
}

// Event is a topic and its properties. Property names are unique and keep
// their insertion order.
type Event struct {
	Topic      string
	Properties []Property
}

// New creates an event. Later properties replace earlier ones with the same name.
func New(topic string, props ...Property) Event {
	ev := Event{Topic: topic, Properties: make([]Property, 0, len(props))}
	for _, p := range props {
		ev.Set(p.Name, p.Value)
	}
	return ev
}

// P is shorthand for constructing a Property.
func P(name string, v Value) Property {
	return Property{Name: name, Value: v}
}

// Set replaces the value of an existing property in place or appends a new one.
func (e *Event) Set(name string, v Value) {
	for i := range e.Properties {
		if e.Properties[i].Name == name {
			e.Properties[i].Value = v
			return
		}
	}
	e.Properties = append(e.Properties, Property{Name: name, Value: v})
}

// Get returns the value of the named property.
func (e Event) Get(name string) (Value, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return Value{}, false
}
