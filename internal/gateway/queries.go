package gateway

// GraphQL documents for the crawl. Each dependent sub-query is kept
// deliberately small: GitHub scores query complexity per request, and the
// combined document for a PR with reviews, comments and participants
// exceeds the secondary rate limit almost immediately on large repos.

const queryRepositories = `
query($first: Int!, $cursor: String) {
  search(query: "stars:>1000 sort:stars-desc", type: REPOSITORY, first: $first, after: $cursor) {
    nodes {
      ... on Repository {
        name
        owner { login }
        url
        stargazerCount
        forkCount
        createdAt
        updatedAt
        primaryLanguage { name }
        licenseInfo { name }
      }
    }
    pageInfo {
      endCursor
      hasNextPage
    }
  }
}
`

const queryRepositoryPRCount = `
query($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    pullRequests(states: [MERGED, CLOSED]) {
      totalCount
    }
  }
}
`

const queryPullRequests = `
query($owner: String!, $name: String!, $first: Int!, $cursor: String) {
  repository(owner: $owner, name: $name) {
    pullRequests(first: $first, after: $cursor, states: [MERGED, CLOSED]) {
      totalCount
      pageInfo {
        endCursor
        hasNextPage
      }
      nodes {
        number
        state
        createdAt
        mergedAt
        closedAt
      }
    }
  }
}
`

const queryPullRequestDetails = `
query($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    pullRequest(number: $number) {
      title
      bodyText
      changedFiles
      additions
      deletions
    }
  }
}
`

const queryPullRequestReviewCount = `
query($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    pullRequest(number: $number) {
      reviews {
        totalCount
      }
    }
  }
}
`

const queryPullRequestCommentCount = `
query($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    pullRequest(number: $number) {
      comments {
        totalCount
      }
    }
  }
}
`

const queryPullRequestParticipantCount = `
query($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    pullRequest(number: $number) {
      participants {
        totalCount
      }
    }
  }
}
`
