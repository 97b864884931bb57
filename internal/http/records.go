package http

import (
	"github.com/gin-gonic/gin"
)

// RecordsController soft-deletes books and students once nothing is on loan.
type RecordsController struct {
	retirer RecordRetirer
}

func NewRecordsController(retirer RecordRetirer) *RecordsController {
	return &RecordsController{retirer: retirer}
}

// DeleteBook removes a book from the catalog
// DELETE /api/books/:id
func (rc *RecordsController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := rc.retirer.RetireBook(c.Request.Context(), id, actor(c)); err != nil {
		respondDomainError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted", gin.H{"id": id})
}

// DeleteStudent removes a student
// DELETE /api/students/:id
func (rc *RecordsController) DeleteStudent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := rc.retirer.RemoveStudent(c.Request.Context(), id, actor(c)); err != nil {
		respondDomainError(c, err, "delete student")
		return
	}
	respondSuccess(c, "student deleted", gin.H{"id": id})
}
