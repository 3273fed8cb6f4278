package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

const numberedBoldDoc = `# Gear Drop

**1. Gator Wrestling Gloves**
Type: Gear
Icons: [Swamp] [Heat]
Keywords: Tool, Protective
Rules: Gain +1 Brawn when fighting reptiles.
Flavor: "They said it couldn't be done."
Image Prompt: Thick leather gloves covered in teeth marks

**2. Airboat Fan**
**Type:** gear
**Keywords:** Vehicle
`

const headingDoc = `# Hazard Deck

## Sinkhole
Type: hazard
**Rules:** Lose 1 Grit.

## Gator Ambush
- Keywords: Creature, Ambush
- Flavor Text: Eyes in the reeds.
`

const paragraphDoc = `Swamp Lantern
Type: gear
Rules: Reveal an adjacent region.

Old Map
Type: treasure
`

func TestSplitSections(t *testing.T) {
	t.Run("NumberedBoldWins", func(t *testing.T) {
		sections := SplitSections(numberedBoldDoc)
		require.Len(t, sections, 2)
		assert.Equal(t, "Gator Wrestling Gloves", sections[0].Title)
		assert.Equal(t, "Airboat Fan", sections[1].Title)
		assert.True(t, strings.HasPrefix(sections[0].Body, "Type: Gear"))
		assert.NotContains(t, sections[0].Body, "Airboat")
	})

	t.Run("FallsBackToHeadings", func(t *testing.T) {
		assert.Empty(t, NumberedBoldSections(headingDoc))

		sections := SplitSections(headingDoc)
		require.Len(t, sections, 2, "the deck title has no body and is dropped")
		assert.Equal(t, "Sinkhole", sections[0].Title)
		assert.Equal(t, "Gator Ambush", sections[1].Title)
		assert.Equal(t, "Type: hazard\n**Rules:** Lose 1 Grit.", sections[0].Body)
	})

	t.Run("FallsBackToParagraphs", func(t *testing.T) {
		assert.Empty(t, NumberedBoldSections(paragraphDoc))
		assert.Empty(t, HeadingSections(paragraphDoc))

		sections := SplitSections(paragraphDoc)
		require.Len(t, sections, 2)
		assert.Equal(t, "Swamp Lantern", sections[0].Title)
		assert.Equal(t, "Old Map", sections[1].Title)
		assert.Equal(t, "Type: treasure", sections[1].Body)
	})

	t.Run("SetextHeadingsAreIgnored", func(t *testing.T) {
		doc := "Card Title\n==========\n\nType: gear\n"
		assert.Empty(t, HeadingSections(doc))
	})

	t.Run("WindowsLineEndings", func(t *testing.T) {
		doc := strings.ReplaceAll(numberedBoldDoc, "\n", "\r\n")
		sections := SplitSections(doc)
		require.Len(t, sections, 2)
		assert.Equal(t, "Gator Wrestling Gloves", sections[0].Title)
	})

	t.Run("EmptyDocument", func(t *testing.T) {
		assert.Empty(t, SplitSections("  \n\n  "))
	})
}

func TestParseMarkdown(t *testing.T) {
	p := NewParser(nil)
	format := Detect("cards.md", []byte(numberedBoldDoc))

	t.Run("TwoSectionsOneWithoutRules", func(t *testing.T) {
		cards, err := p.Parse([]byte(numberedBoldDoc), entities.CategoryGear, format)
		require.NoError(t, err)
		require.Len(t, cards, 2)

		gloves := cards[0]
		assert.Equal(t, "Gator Wrestling Gloves", gloves.Name)
		assert.Equal(t, entities.CategoryGear, gloves.Type)
		assert.Equal(t, "equipment", gloves.Category)
		assert.Equal(t, []string{"Swamp", "Heat"}, gloves.Icons)
		assert.Equal(t, []string{"Tool", "Protective"}, gloves.Keywords)
		assert.Equal(t, []string{"Gain +1 Brawn when fighting reptiles."}, gloves.Rules)
		assert.Equal(t, "They said it couldn't be done.", gloves.Flavor)
		assert.Equal(t, "Thick leather gloves covered in teeth marks", gloves.ImagePrompt)
		assert.True(t, strings.HasPrefix(gloves.ID, "gator-wrestling-gloves-"))

		fan := cards[1]
		assert.Equal(t, "Airboat Fan", fan.Name)
		assert.Equal(t, entities.CategoryGear, fan.Type)
		assert.Equal(t, []string{"Vehicle"}, fan.Keywords)
		assert.Empty(t, fan.Rules)
	})

	t.Run("MissingTypeUsesTarget", func(t *testing.T) {
		cards, err := p.Parse([]byte(headingDoc), entities.CategoryHazard, format)
		require.NoError(t, err)
		require.Len(t, cards, 2)

		assert.Equal(t, []string{"Lose 1 Grit."}, cards[0].Rules)
		assert.Equal(t, entities.CategoryHazard, cards[1].Type)
		assert.Equal(t, "environmental", cards[1].Category)
		assert.Equal(t, []string{"Creature", "Ambush"}, cards[1].Keywords)
		assert.Equal(t, "Eyes in the reeds.", cards[1].Flavor)
	})

	t.Run("ExplicitTypeIsNormalized", func(t *testing.T) {
		doc := "**1. Doc Hollis**\n**Type**: Player Character\n**Category**: medic\n"
		cards, err := p.Parse([]byte(doc), entities.CategoryGear, format)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, entities.CategoryPlayerCharacter, cards[0].Type)
		assert.Equal(t, "medic", cards[0].Category)
	})

	t.Run("IconsWithoutBrackets", func(t *testing.T) {
		doc := "## Bait Bucket\nIcon: Swamp, Coast\n"
		cards, err := p.Parse([]byte(doc), entities.CategoryGear, format)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, []string{"Swamp", "Coast"}, cards[0].Icons)
	})

	t.Run("IconParenthesizedLabel", func(t *testing.T) {
		doc := "**1. Swamp Boots**\nType: gear\nIcon(s): [Swamp] [Heat]\nRules: Ignore mud.\n\n" +
			"**2. Head Lamp**\n**Icon(s):** [Light]\n"
		cards, err := p.Parse([]byte(doc), entities.CategoryGear, format)
		require.NoError(t, err)
		require.Len(t, cards, 2)
		assert.Equal(t, []string{"Swamp", "Heat"}, cards[0].Icons)
		assert.Equal(t, []string{"Ignore mud."}, cards[0].Rules)
		assert.Equal(t, []string{"Light"}, cards[1].Icons)
	})

	t.Run("NoSections", func(t *testing.T) {
		_, err := p.Parse([]byte("\n\n"), entities.CategoryGear, format)
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, FormatMarkdown, perr.Format)
		assert.Equal(t, "No card sections found in Markdown file.", perr.Error())
	})
}

func TestCleanTitle(t *testing.T) {
	tests := map[string]string{
		"**1. Airboat Fan**": "Airboat Fan",
		"## Sinkhole":        "Sinkhole",
		"  _Old Map_  ":      "Old Map",
		"3) Swamp Lantern:":  "Swamp Lantern",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, cleanTitle(in))
		})
	}
}
