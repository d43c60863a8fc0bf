package classify

import "testing"

func TestVariantPrimaryPriority(t *testing.T) {
	tests := []struct {
		name string
		sig  VariantSignals
		want string
	}{
		{
			name: "plain card",
			sig:  VariantSignals{BorderColor: "black", Frame: "2015"},
			want: "standard",
		},
		{
			name: "textless beats everything",
			sig: VariantSignals{
				Textless:     true,
				BorderColor:  "borderless",
				FrameEffects: []string{"showcase", "extendedart"},
				FullArt:      true,
			},
			want: "textless",
		},
		{
			name: "borderless beats showcase",
			sig: VariantSignals{
				BorderColor:  "borderless",
				FrameEffects: []string{"showcase"},
			},
			want: "borderless",
		},
		{
			name: "showcase beats extended art",
			sig:  VariantSignals{FrameEffects: []string{"extendedart", "showcase"}},
			want: "showcase",
		},
		{
			name: "extended art beats retro",
			sig:  VariantSignals{Frame: "1997", FrameEffects: []string{"extendedart"}},
			want: "extended-art",
		},
		{
			name: "retro beats full art",
			sig:  VariantSignals{Frame: "1993", FullArt: true},
			want: "retro",
		},
		{
			name: "full art stands alone",
			sig:  VariantSignals{FullArt: true, Frame: "2015"},
			want: "full-art",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VariantLabel(tt.sig); got != tt.want {
				t.Errorf("VariantLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVariantModifiers(t *testing.T) {
	tests := []struct {
		name string
		sig  VariantSignals
		want string
	}{
		{
			name: "foil-only printing",
			sig:  VariantSignals{Finishes: []string{"foil"}},
			want: "standard-foil",
		},
		{
			name: "foil and nonfoil is not a foil treatment",
			sig:  VariantSignals{Finishes: []string{"nonfoil", "foil"}},
			want: "standard",
		},
		{
			name: "modifiers sorted deterministically",
			sig: VariantSignals{
				FrameEffects: []string{"gilded"},
				PromoTypes:   []string{"serialized"},
				Finishes:     []string{"etched"},
			},
			want: "standard-etched-gilded-serialized",
		},
		{
			name: "oilslick only in the reinterpreted sets",
			sig: VariantSignals{
				FrameEffects: []string{"inverted"},
				SetCode:      "one",
			},
			want: "standard-oilslick",
		},
		{
			name: "inverted outside the set list is not oilslick",
			sig: VariantSignals{
				FrameEffects: []string{"inverted"},
				SetCode:      "neo",
			},
			want: "standard",
		},
		{
			name: "duplicate tags appended once",
			sig: VariantSignals{
				FrameEffects: []string{"etched", "etched"},
				Finishes:     []string{"etched"},
			},
			want: "standard-etched",
		},
		{
			name: "primary plus modifier",
			sig: VariantSignals{
				FrameEffects: []string{"showcase"},
				PromoTypes:   []string{"boosterfun"},
			},
			want: "showcase-boosterfun",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VariantLabel(tt.sig); got != tt.want {
				t.Errorf("VariantLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVariantTotality(t *testing.T) {
	// Exhaust the boolean/enum corners: the classifier must always return a
	// non-empty, repeatable label
	borders := []string{"", "black", "borderless"}
	frames := []string{"", "1993", "1997", "2003", "2015"}
	effects := [][]string{nil, {"showcase"}, {"inverted"}, {"extendedart", "gilded"}}
	bools := []bool{false, true}

	for _, border := range borders {
		for _, frame := range frames {
			for _, fx := range effects {
				for _, fullArt := range bools {
					for _, textless := range bools {
						sig := VariantSignals{
							FullArt:      fullArt,
							Textless:     textless,
							BorderColor:  border,
							Frame:        frame,
							FrameEffects: fx,
							SetCode:      "one",
						}
						got := VariantLabel(sig)
						if got == "" {
							t.Fatalf("empty label for %+v", sig)
						}
						if again := VariantLabel(sig); again != got {
							t.Fatalf("non-deterministic label for %+v: %q then %q", sig, got, again)
						}
					}
				}
			}
		}
	}
}
