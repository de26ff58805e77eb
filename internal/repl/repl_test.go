// Package repl SPDX-License-Identifier: Apache-2.0
package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleContract = `contract Wallet {
    #[storage]
    struct State {
        balance: U256,
    }
    #[create]
    fn create() writes State {
        State.balance = 0;
    }
    ext fn deposit(amount: U256) writes State {
        State.balance = State.balance + amount;
    }
}`

func TestStartPrintsBuiltIRForOneParagraph(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(sampleContract + "\n")

	Start(&out, in)

	assert.Contains(t, out.String(), "Wallet")
	assert.Contains(t, out.String(), "deposit")
}

func TestStartReportsParseErrorsWithoutPanicking(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("this is not kanso\n\n")

	assert.NotPanics(t, func() { Start(&out, in) })
}

func TestStartSkipsBlankParagraphs(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("\n\n\n")

	Start(&out, in)

	assert.NotContains(t, out.String(), "contract")
}
