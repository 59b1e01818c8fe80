package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Feijão Carioca":   "feijao carioca",
		"Pão de Queijo":    "pao de queijo",
		"AÇÚCAR CRISTAL":   "acucar cristal",
		"Escola São João":  "escola sao joao",
		"sem acento":       "sem acento",
		"CRECHE MUNICIPAL": "creche municipal",
	}
	for in, want := range cases {
		require.Equal(t, want, Fold(in))
	}
}
