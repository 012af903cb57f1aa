package discovery_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/grm/internal/discovery"
)

func makeRepo(path string) {
	Expect(os.MkdirAll(filepath.Join(path, ".git", "objects"), 0o755)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(path, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644)).To(Succeed())
}

func paths(results []discovery.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Path)
	}
	return out
}

var _ = Describe("Discovery", func() {
	var root string

	BeforeEach(func() {
		var err error
		root, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
	})

	It("matches exclude patterns", func() {
		Expect(discovery.MatchesExclude("C:/code/repo/.git", []string{"**/.git/**"})).To(BeTrue())
		Expect(discovery.MatchesExclude("C:/code/repo", []string{"**/node_modules/**"})).To(BeFalse())
	})

	It("finds working trees and names them by directory", func() {
		makeRepo(filepath.Join(root, "web"))
		makeRepo(filepath.Join(root, "group", "api"))

		results, err := discovery.Scan(context.Background(), discovery.Options{Roots: []string{root}})
		Expect(err).NotTo(HaveOccurred())
		Expect(paths(results)).To(ConsistOf(filepath.Join(root, "web"), filepath.Join(root, "group", "api")))
		for _, r := range results {
			Expect(r.Name).To(Equal(filepath.Base(r.Path)))
		}
	})

	It("does not descend into a found working tree", func() {
		makeRepo(filepath.Join(root, "outer"))
		makeRepo(filepath.Join(root, "outer", "nested"))

		results, err := discovery.Scan(context.Background(), discovery.Options{Roots: []string{root}})
		Expect(err).NotTo(HaveOccurred())
		Expect(paths(results)).To(Equal([]string{filepath.Join(root, "outer")}))
	})

	It("respects exclude patterns", func() {
		makeRepo(filepath.Join(root, "vendor", "lib"))
		makeRepo(filepath.Join(root, "app"))

		results, err := discovery.Scan(context.Background(), discovery.Options{
			Roots:   []string{root},
			Exclude: []string{"**/vendor/**"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(paths(results)).To(Equal([]string{filepath.Join(root, "app")}))
	})

	It("honors MaxDepth", func() {
		makeRepo(filepath.Join(root, "a"))
		makeRepo(filepath.Join(root, "x", "y", "deep"))

		results, err := discovery.Scan(context.Background(), discovery.Options{Roots: []string{root}, MaxDepth: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(paths(results)).To(Equal([]string{filepath.Join(root, "a")}))
	})

	It("detects linked .git files", func() {
		repo := filepath.Join(root, "linked")
		Expect(os.MkdirAll(repo, 0o755)).To(Succeed())
		gitDir := filepath.Join(root, "store", "linked.git")
		Expect(os.MkdirAll(gitDir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(repo, ".git"), []byte("gitdir: "+gitDir), 0o644)).To(Succeed())

		results, err := discovery.Scan(context.Background(), discovery.Options{Roots: []string{root}})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Path).To(Equal(repo))
		Expect(results[0].GitDir).To(Equal(gitDir))
	})

	It("follows symlinks only when asked, once per target", func() {
		target := filepath.Join(root, "real")
		makeRepo(filepath.Join(target, "repo"))
		scanRoot := filepath.Join(root, "scan")
		Expect(os.MkdirAll(scanRoot, 0o755)).To(Succeed())
		if err := os.Symlink(target, filepath.Join(scanRoot, "link")); err != nil {
			Skip("symlinks unavailable: " + err.Error())
		}

		results, err := discovery.Scan(context.Background(), discovery.Options{Roots: []string{scanRoot}})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())

		results, err = discovery.Scan(context.Background(), discovery.Options{Roots: []string{scanRoot, target}, FollowSymlinks: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(paths(results)).To(Equal([]string{filepath.Join(target, "repo")}))
	})

	It("fails for a missing root", func() {
		_, err := discovery.Scan(context.Background(), discovery.Options{Roots: []string{filepath.Join(root, "missing")}})
		Expect(err).To(HaveOccurred())
	})

	It("stops when the context is cancelled", func() {
		makeRepo(filepath.Join(root, "a"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := discovery.Scan(ctx, discovery.Options{Roots: []string{root}})
		Expect(err).To(MatchError(context.Canceled))
	})
})
