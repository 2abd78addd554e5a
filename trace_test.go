package queryopts

import "testing"

func TestTraceDegradedAndClean(t *testing.T) {
	codec := practiceCodec(t)

	_, clean := codec.DeserializeWithTrace(ParseQuery("m=t&a=01,02&r=1"))
	if !clean.Clean() {
		t.Fatalf("expected clean trace, got %+v", clean.Degraded())
	}

	_, dirty := codec.DeserializeWithTrace(ParseQuery("m=x&a=01,99&r=on&fbclid=1"))
	if dirty.Clean() {
		t.Fatalf("expected degraded trace")
	}
	degraded := dirty.Degraded()
	if len(degraded) != 3 {
		t.Fatalf("expected 3 degraded entries, got %+v", degraded)
	}
	keys := []string{degraded[0].Key, degraded[1].Key, degraded[2].Key}
	if keys[0] != "mode" || keys[1] != "enabledSets" || keys[2] != "reverse" {
		t.Fatalf("unexpected degraded keys %v", keys)
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	codec := practiceCodec(t)
	_, trace := codec.DeserializeWithTrace(ParseQuery("a=02,404&zz=1"))

	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	sets, ok := decoded.Lookup("enabledSets")
	if !ok || sets.Source != SourceParam || sets.Raw != "02,404" || len(sets.Dropped) != 1 {
		t.Fatalf("unexpected decoded entry %+v", sets)
	}
	if len(decoded.Unknown) != 1 || decoded.Unknown[0] != "zz" {
		t.Fatalf("unexpected unknown params %v", decoded.Unknown)
	}
	if _, err := TraceFromJSON([]byte("{")); err == nil {
		t.Fatalf("expected invalid payload to fail")
	}
}
