package schools

import (
	"net/mail"
	"strings"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

func (s *Service) validate(school School) error {
	if strings.TrimSpace(school.Name) == "" {
		return shared.ValidationError("o nome da escola é obrigatório")
	}
	if school.Email != "" {
		if _, err := mail.ParseAddress(school.Email); err != nil {
			return shared.ValidationError("e-mail da escola inválido")
		}
	}
	return nil
}
