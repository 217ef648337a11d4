package context

import "testing"

func TestChainResolverFallsBackToDefault(t *testing.T) {
	c := ChainResolver{Resolvers: []WindowResolver{ResolverFunc(func(string) (int, bool) { return 0, false })}}
	if got := c.ContextWindowChars("unknown-model"); got != DefaultContextWindowChars {
		t.Errorf("ContextWindowChars = %d, want %d", got, DefaultContextWindowChars)
	}
}

func TestChainResolverUsesFirstHit(t *testing.T) {
	c := ChainResolver{Resolvers: []WindowResolver{
		ResolverFunc(func(string) (int, bool) { return 0, false }),
		ResolverFunc(func(string) (int, bool) { return 1000, true }),
	}}
	if got := c.ContextWindowChars("model"); got != 1000*CharsPerToken {
		t.Errorf("ContextWindowChars = %d, want %d", got, 1000*CharsPerToken)
	}
}

func TestStaticFamilyResolverMatchesKnownFamily(t *testing.T) {
	r := StaticFamilyResolver{Families: KnownFamilies}
	tokens, ok := r.ContextWindowTokens("claude-3-5-sonnet-20241022")
	if !ok || tokens != 200000 {
		t.Errorf("ContextWindowTokens = (%d, %v), want (200000, true)", tokens, ok)
	}
}

func TestStaticFamilyResolverMissUnknownModel(t *testing.T) {
	r := StaticFamilyResolver{Families: KnownFamilies}
	if _, ok := r.ContextWindowTokens("some-unheard-of-model"); ok {
		t.Error("expected no match for an unrecognised model")
	}
}
