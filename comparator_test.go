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
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willnyarko/arksync/internal/cache"
	"github.com/willnyarko/arksync/model"
)

func agentWithArk(t *testing.T, uri, ark string) *model.AgentRecord {
	t.Helper()
	doc := fmt.Sprintf(`{"uri": %q}`, uri)
	if ark != "" {
		doc = fmt.Sprintf(`{"uri": %q, "agent_record_identifiers": [
			{"primary_identifier": false, "record_identifier": %q, "source": "snac", "jsonmodel_type": "agent_record_identifier"}
		]}`, uri, ark)
	}
	agent := &model.AgentRecord{}
	require.NoError(t, json.Unmarshal([]byte(doc), agent))
	return agent
}

func TestCompareVerdicts(t *testing.T) {
	secondary := cache.NewFileCache(t.TempDir())
	comparator := NewComparator(secondary)
	uri := "/agents/people/1"

	// No snapshot at all.
	verdict, msg := comparator.Compare(uri, agentWithArk(t, uri, "ark:/99166/w6abc"))
	assert.Equal(t, model.VerdictNoSecondaryData, verdict)
	assert.Equal(t, "Secondary cache not available for comparison", msg)

	// Matching ARKs.
	_, err := secondary.Set(uri, agentWithArk(t, uri, "ark:/99166/w6abc"))
	require.NoError(t, err)
	verdict, msg = comparator.Compare(uri, agentWithArk(t, uri, "ark:/99166/w6abc"))
	assert.Equal(t, model.VerdictMatch, verdict)
	assert.Contains(t, msg, "ark:/99166/w6abc")

	// Diverging ARKs.
	verdict, msg = comparator.Compare(uri, agentWithArk(t, uri, "ark:/99166/w6zzz"))
	assert.Equal(t, model.VerdictMismatch, verdict)
	assert.Contains(t, msg, "Primary=ark:/99166/w6zzz")
	assert.Contains(t, msg, "Secondary=ark:/99166/w6abc")

	// Primary has one, secondary does not.
	_, err = secondary.Set(uri, agentWithArk(t, uri, ""))
	require.NoError(t, err)
	verdict, _ = comparator.Compare(uri, agentWithArk(t, uri, "ark:/99166/w6abc"))
	assert.Equal(t, model.VerdictPrimaryOnly, verdict)

	// Secondary has one, primary does not.
	_, err = secondary.Set(uri, agentWithArk(t, uri, "ark:/99166/w6abc"))
	require.NoError(t, err)
	verdict, _ = comparator.Compare(uri, agentWithArk(t, uri, ""))
	assert.Equal(t, model.VerdictSecondaryOnly, verdict)

	// Neither side has one.
	_, err = secondary.Set(uri, agentWithArk(t, uri, ""))
	require.NoError(t, err)
	verdict, _ = comparator.Compare(uri, agentWithArk(t, uri, ""))
	assert.Equal(t, model.VerdictNeither, verdict)
}
