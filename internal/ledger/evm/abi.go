package evm

// marketplaceABI describes the task marketplace contract surface this
// gateway consumes. Kept inline so the module carries no generated
// bindings; the tuple layout must match rawJob field for field.
const marketplaceABI = `[
  {
    "type": "function",
    "name": "submitJob",
    "stateMutability": "payable",
    "inputs": [
      {"name": "description", "type": "string"},
      {"name": "deadline", "type": "uint64"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "claimJob",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "jobId", "type": "uint256"}],
    "outputs": []
  },
  {
    "type": "function",
    "name": "completeJob",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "jobId", "type": "uint256"},
      {"name": "result", "type": "string"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "verifyJob",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "jobId", "type": "uint256"}],
    "outputs": []
  },
  {
    "type": "function",
    "name": "rejectJob",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "jobId", "type": "uint256"},
      {"name": "reason", "type": "string"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "getJob",
    "stateMutability": "view",
    "inputs": [{"name": "jobId", "type": "uint256"}],
    "outputs": [
      {
        "name": "job",
        "type": "tuple",
        "components": [
          {"name": "id", "type": "uint256"},
          {"name": "submitter", "type": "address"},
          {"name": "worker", "type": "address"},
          {"name": "status", "type": "uint8"},
          {"name": "reward", "type": "uint256"},
          {"name": "description", "type": "string"},
          {"name": "result", "type": "string"},
          {"name": "rejectionReason", "type": "string"},
          {"name": "timesRejected", "type": "uint32"},
          {"name": "createdAt", "type": "uint64"},
          {"name": "deadline", "type": "uint64"}
        ]
      },
      {"name": "exists", "type": "bool"}
    ]
  },
  {
    "type": "function",
    "name": "getJobsByOwner",
    "stateMutability": "view",
    "inputs": [{"name": "owner", "type": "address"}],
    "outputs": [
      {
        "name": "jobs",
        "type": "tuple[]",
        "components": [
          {"name": "id", "type": "uint256"},
          {"name": "submitter", "type": "address"},
          {"name": "worker", "type": "address"},
          {"name": "status", "type": "uint8"},
          {"name": "reward", "type": "uint256"},
          {"name": "description", "type": "string"},
          {"name": "result", "type": "string"},
          {"name": "rejectionReason", "type": "string"},
          {"name": "timesRejected", "type": "uint32"},
          {"name": "createdAt", "type": "uint64"},
          {"name": "deadline", "type": "uint64"}
        ]
      }
    ]
  },
  {
    "type": "event",
    "name": "JobSubmitted",
    "anonymous": false,
    "inputs": [
      {"name": "jobId", "type": "uint256", "indexed": true},
      {"name": "submitter", "type": "address", "indexed": true}
    ]
  }
]`
