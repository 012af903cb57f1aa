package model_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/grm/internal/model"
)

var _ = Describe("SyncResult", func() {
	It("returns nil FailedStep when every step succeeded", func() {
		res := model.SyncResult{Steps: []model.StepResult{{Label: "fetch", Success: true}}, Succeeded: true}
		Expect(res.FailedStep()).To(BeNil())
	})

	It("returns the first unsuccessful step", func() {
		res := model.SyncResult{Steps: []model.StepResult{
			{Label: "fetch", Success: true},
			{Label: "pull", Success: false, ExitCode: 1, ErrorClass: "conflict"},
		}}
		failed := res.FailedStep()
		Expect(failed).NotTo(BeNil())
		Expect(failed.Label).To(Equal("pull"))
		Expect(failed.ErrorClass).To(Equal("conflict"))
	})

	It("uses snake_case JSON keys and omits empty error classes", func() {
		res := model.SyncResult{
			RunID:     "run-1",
			RepoName:  "web",
			Path:      "/repos/web",
			Steps:     []model.StepResult{{Label: "fetch", Command: "git fetch", Output: []string{}, Success: true}},
			Succeeded: true,
		}
		data, err := json.Marshal(res)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"run_id":"run-1"`))
		Expect(string(data)).To(ContainSubstring(`"exit_code":0`))
		Expect(string(data)).NotTo(ContainSubstring("error_class"))
		Expect(string(data)).NotTo(ContainSubstring("interrupted"))
	})
})
