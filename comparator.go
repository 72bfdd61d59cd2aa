/*
Copyright 2025 Arksync Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package arksync

import (
	"fmt"

	"github.com/willnyarko/arksync/internal/cache"
	"github.com/willnyarko/arksync/model"
)

// Comparator checks a freshly fetched primary record against the secondary
// cached snapshot for the same identity (the test-environment cache built
// before a production run). It reads only; neither side is ever mutated.
type Comparator struct {
	secondary cache.Cache
}

func NewComparator(secondary cache.Cache) *Comparator {
	return &Comparator{secondary: secondary}
}

// Compare classifies agreement between the primary record and its secondary
// snapshot by canonical SNAC ARK. A missing snapshot is the
// no_secondary_data verdict, not an error; an unreadable one is
// comparison_error.
func (c *Comparator) Compare(agentURI string, primary *model.AgentRecord) (model.CompareVerdict, string) {
	if !c.secondary.Exists(agentURI) {
		return model.VerdictNoSecondaryData, "Secondary cache not available for comparison"
	}

	secondary := &model.AgentRecord{}
	if err := c.secondary.Get(agentURI, secondary); err != nil {
		return model.VerdictCompareError, fmt.Sprintf("Error reading secondary cache: %v", err)
	}

	primaryArk, primaryHas := primary.CanonicalArk()
	secondaryArk, secondaryHas := secondary.CanonicalArk()

	switch {
	case primaryHas && secondaryHas && primaryArk == secondaryArk:
		return model.VerdictMatch, fmt.Sprintf("SNAC ARK matches: %s", primaryArk)
	case primaryHas && secondaryHas:
		return model.VerdictMismatch, fmt.Sprintf("SNAC ARK mismatch: Primary=%s, Secondary=%s", primaryArk, secondaryArk)
	case primaryHas:
		return model.VerdictPrimaryOnly, fmt.Sprintf("SNAC ARK in primary only: %s", primaryArk)
	case secondaryHas:
		return model.VerdictSecondaryOnly, fmt.Sprintf("SNAC ARK in secondary only: %s", secondaryArk)
	default:
		return model.VerdictNeither, "No SNAC ARK on either side"
	}
}
