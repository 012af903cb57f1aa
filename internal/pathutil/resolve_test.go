// SPDX-License-Identifier: MIT
package pathutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/grm/internal/pathutil"
)

var _ = Describe("HomeExpander", func() {
	It("expands a bare tilde and tilde-prefixed paths", func() {
		h := pathutil.NewHomeExpanderWithLookup(func() (string, error) { return "/home/dev", nil })
		got, err := h.Expand("~")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("/home/dev"))

		got, err = h.Expand("~/src/web")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(filepath.Join("/home/dev", "src", "web")))
	})

	It("leaves other paths and ~user forms untouched", func() {
		h := pathutil.NewHomeExpanderWithLookup(func() (string, error) { return "/home/dev", nil })
		got, err := h.Expand("~other/src")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("~other/src"))

		got, err = h.Expand("/abs/path")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("/abs/path"))
	})

	It("looks the home directory up once", func() {
		calls := 0
		h := pathutil.NewHomeExpanderWithLookup(func() (string, error) {
			calls++
			return "/home/dev", nil
		})
		_, _ = h.Expand("~/a")
		_, _ = h.Expand("~/b")
		Expect(calls).To(Equal(1))
	})

	It("surfaces lookup failures", func() {
		h := pathutil.NewHomeExpanderWithLookup(func() (string, error) { return "", errors.New("no home") })
		_, err := h.Expand("~/a")
		Expect(err).To(MatchError("no home"))
	})
})

var _ = Describe("Resolver", func() {
	var (
		dir      string
		resolver *pathutil.Resolver
	)

	BeforeEach(func() {
		var err error
		dir, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		resolver = pathutil.NewResolver(pathutil.NewHomeExpanderWithLookup(func() (string, error) { return dir, nil }))
	})

	It("rejects blank input", func() {
		_, ok := resolver.Resolve("   ")
		Expect(ok).To(BeFalse())
	})

	It("cleans relative segments", func() {
		repo := filepath.Join(dir, "repo")
		Expect(os.MkdirAll(repo, 0o755)).To(Succeed())
		got, ok := resolver.Resolve(filepath.Join(dir, "x", "..", "repo", "."))
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(repo))
	})

	It("expands the home directory", func() {
		Expect(os.MkdirAll(filepath.Join(dir, "src"), 0o755)).To(Succeed())
		got, ok := resolver.Resolve("~/src")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(filepath.Join(dir, "src")))
	})

	It("follows symlinks", func() {
		if runtime.GOOS == "windows" {
			Skip("symlinks require elevated privileges on windows")
		}
		target := filepath.Join(dir, "target")
		link := filepath.Join(dir, "link")
		Expect(os.MkdirAll(target, 0o755)).To(Succeed())
		Expect(os.Symlink(target, link)).To(Succeed())
		got, ok := resolver.Resolve(link)
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(target))
	})

	It("keeps missing trailing segments under a resolved parent", func() {
		got, ok := resolver.Resolve(filepath.Join(dir, "missing", "child"))
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(filepath.Join(dir, "missing", "child")))
	})

	It("requires an existing directory in ResolveDir", func() {
		_, err := resolver.ResolveDir(filepath.Join(dir, "missing"))
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())

		file := filepath.Join(dir, "file.txt")
		Expect(os.WriteFile(file, []byte("x"), 0o644)).To(Succeed())
		_, err = resolver.ResolveDir(file)
		Expect(errors.Is(err, pathutil.ErrNotDirectory)).To(BeTrue())

		got, err := resolver.ResolveDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(dir))
	})

	It("converts between portable and native forms", func() {
		native := filepath.Join(dir, "repo")
		Expect(pathutil.Native(pathutil.Portable(native))).To(Equal(native))
	})

	It("compares canonical paths", func() {
		Expect(pathutil.Same(filepath.Join(dir, "a"), filepath.Join(dir, "a", "."))).To(BeTrue())
		Expect(pathutil.Same(filepath.Join(dir, "a"), filepath.Join(dir, "b"))).To(BeFalse())
	})
})
